package attendance

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultSessionRefund is credited back to a member who skips a session.
var DefaultSessionRefund = decimal.NewFromInt(20)

// Status labels and icons shown next to an attendee.
const (
	LabelJoined   = "Joined"
	LabelUnjoined = "Unjoined"
	IconJoined    = "✓"
	IconUnjoined  = "✕"
)

// Domain errors
var (
	ErrInvalidID       = errors.New("attendance ID must be positive")
	ErrInvalidMemberID = errors.New("attendance must be associated with a member")
	ErrNegativeRefund  = errors.New("refund amount cannot be negative")
)

// Attendance is one member's joined/unjoined status for one schedule.
// RefundAmount is owned by the server and only ever displayed here.
type Attendance struct {
	ID           int             `json:"attendanceId"`
	ScheduleID   int             `json:"scheduleId,omitempty"`
	MemberID     int             `json:"memberId"`
	MemberName   string          `json:"memberName"`
	Joined       bool            `json:"joined"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
}

// Validate checks the attendance invariants.
// PRE: none
// POST: Returns nil if valid, error otherwise
// INVARIANT: RefundAmount >= 0
func (a *Attendance) Validate() error {
	if a.ID <= 0 {
		return ErrInvalidID
	}
	if a.MemberID <= 0 {
		return ErrInvalidMemberID
	}
	if a.RefundAmount.IsNegative() {
		return ErrNegativeRefund
	}
	return nil
}

// RefundFor returns the refund owed for a session given the joined flag.
// PRE: perSession >= 0
// POST: Returns perSession when unjoined, zero when joined
func RefundFor(joined bool, perSession decimal.Decimal) decimal.Decimal {
	if joined {
		return decimal.Zero
	}
	return perSession
}

// StatusLabel returns the badge text for a joined flag.
func StatusLabel(joined bool) string {
	if joined {
		return LabelJoined
	}
	return LabelUnjoined
}

// StatusIcon returns the icon glyph for a joined flag.
func StatusIcon(joined bool) string {
	if joined {
		return IconJoined
	}
	return IconUnjoined
}
