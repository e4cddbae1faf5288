package schedule

import (
	"errors"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
)

// Domain errors
var (
	ErrInvalidGroupID = errors.New("schedule must belong to a group")
	ErrMissingDate    = errors.New("schedule date is required")
)

// Schedule is one practice session of a group at a wall-clock date-time.
type Schedule struct {
	ID           int                     `json:"id"`
	GroupID      int                     `json:"groupId"`
	ScheduleDate calendar.Timestamp      `json:"scheduleDate"`
	Attendances  []attendance.Attendance `json:"attendances"`
}

// Validate checks if the Schedule can be created.
// PRE: Schedule struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (s *Schedule) Validate() error {
	if s.GroupID <= 0 {
		return ErrInvalidGroupID
	}
	if s.ScheduleDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// SortedAttendances returns a copy of the attendances ordered by member name,
// ignoring case and accents, with attendance ID breaking ties.
// INVARIANT: the receiver's slice is not reordered
func (s *Schedule) SortedAttendances() []attendance.Attendance {
	out := make([]attendance.Attendance, len(s.Attendances))
	copy(out, s.Attendances)
	col := collate.New(language.Und, collate.Loose)
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].MemberName, out[j].MemberName); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// JoinedCount returns how many attendees are joined.
func (s *Schedule) JoinedCount() int {
	n := 0
	for _, a := range s.Attendances {
		if a.Joined {
			n++
		}
	}
	return n
}

// Attendance finds an attendance record on this schedule by ID.
func (s *Schedule) Attendance(id int) (attendance.Attendance, bool) {
	for _, a := range s.Attendances {
		if a.ID == id {
			return a, true
		}
	}
	return attendance.Attendance{}, false
}

// SetJoined updates the joined flag of one attendance in place.
// POST: Returns false when the attendance is not on this schedule
func (s *Schedule) SetJoined(attendanceID int, joined bool) bool {
	for i := range s.Attendances {
		if s.Attendances[i].ID == attendanceID {
			s.Attendances[i].Joined = joined
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	out := s
	out.Attendances = make([]attendance.Attendance, len(s.Attendances))
	copy(out.Attendances, s.Attendances)
	return out
}

// FilterMonth keeps the schedules dated inside ym, preserving order.
func FilterMonth(list []Schedule, ym calendar.YearMonth) []Schedule {
	out := make([]Schedule, 0, len(list))
	for _, s := range list {
		if ym.Contains(s.ScheduleDate) {
			out = append(out, s)
		}
	}
	return out
}

// SortByDate orders schedules ascending by date-time, then by ID.
func SortByDate(list []Schedule) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].ScheduleDate, list[j].ScheduleDate
		if !a.Equal(b.Time) {
			return a.Before(b)
		}
		return list[i].ID < list[j].ID
	})
}
