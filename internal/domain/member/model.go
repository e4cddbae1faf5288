package member

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Max length constants for user-editable fields.
const (
	MaxNicknameLength = 60
)

// Gender values accepted by the backend. Empty means "not recorded".
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Placeholder shown for missing display values.
const Placeholder = "—"

// Domain errors
var (
	ErrEmptyNickname   = errors.New("member nickname cannot be empty")
	ErrNicknameTooLong = errors.New("member nickname cannot exceed 60 characters")
	ErrInvalidGroupID  = errors.New("member must belong to a group")
	ErrNegativeFee     = errors.New("member fee cannot be negative")
	ErrInvalidGender   = errors.New("gender must be 'male', 'female', 'other' or empty")
)

// Member is a club member together with their current billing figures.
type Member struct {
	ID                     int             `json:"id"`
	Nickname               string          `json:"nickname"`
	Gender                 string          `json:"gender"`
	GroupID                int             `json:"groupId"`
	MemberFee              decimal.Decimal `json:"memberFee"`
	CurrentMonthRefund     decimal.Decimal `json:"currentMonthRefund"`
	EstimatedBillNextMonth decimal.Decimal `json:"estimatedBillNextMonth"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Nickname must not be empty, fee must not be negative
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Nickname) == "" {
		return ErrEmptyNickname
	}
	if len(m.Nickname) > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	if m.GroupID <= 0 {
		return ErrInvalidGroupID
	}
	if m.MemberFee.IsNegative() {
		return ErrNegativeFee
	}
	switch strings.ToLower(m.Gender) {
	case "", GenderMale, GenderFemale, GenderOther:
	default:
		return ErrInvalidGender
	}
	return nil
}

// Title returns the page heading, e.g. "Member • Anna (#4)".
func (m *Member) Title() string {
	return fmt.Sprintf("Member • %s (#%d)", m.Nickname, m.ID)
}

// GenderLabel returns the gender or the placeholder when unknown.
func (m *Member) GenderLabel() string {
	if strings.TrimSpace(m.Gender) == "" {
		return Placeholder
	}
	return m.Gender
}

// EstimateNextMonthBill computes fee × sessions − refund, floored at zero.
// PRE: sessions >= 0
// POST: Returns a non-negative amount
func EstimateNextMonthBill(fee decimal.Decimal, sessions int, refund decimal.Decimal) decimal.Decimal {
	bill := fee.Mul(decimal.NewFromInt(int64(sessions))).Sub(refund)
	if bill.IsNegative() {
		return decimal.Zero
	}
	return bill
}
