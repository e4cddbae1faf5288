package calendar

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the timezone-naive wire format for schedule date-times.
const TimestampLayout = "2006-01-02T15:04:05"

// accepted layouts when reading timestamps from the API or the database.
var parseLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// Domain errors
var (
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidYear      = errors.New("year must be between 1 and 9999")
	ErrInvalidTime      = errors.New("time must be HH:MM")
	ErrInvalidDay       = errors.New("day is outside the month")
	ErrInvalidWeekday   = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidTimestamp = errors.New("timestamp must be YYYY-MM-DDTHH:MM:SS")
)

// YearMonth identifies one calendar month.
// INVARIANT: 1 <= Month <= 12
type YearMonth struct {
	Year  int
	Month int
}

// NewYearMonth validates and returns a YearMonth.
// PRE: none
// POST: Returns the month or an error when out of range
func NewYearMonth(year, month int) (YearMonth, error) {
	if year < 1 || year > 9999 {
		return YearMonth{}, ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return YearMonth{}, ErrInvalidMonth
	}
	return YearMonth{Year: year, Month: month}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// ParseYearMonth parses the "YYYY-MM" value of a month picker.
// PRE: none
// POST: Returns the month or an error for malformed input
func ParseYearMonth(s string) (YearMonth, error) {
	yy, mm, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearMonth{}, fmt.Errorf("month %q must be YYYY-MM", s)
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return YearMonth{}, fmt.Errorf("month %q must be YYYY-MM", s)
	}
	month, err := strconv.Atoi(mm)
	if err != nil {
		return YearMonth{}, fmt.Errorf("month %q must be YYYY-MM", s)
	}
	return NewYearMonth(year, month)
}

// Add moves by n whole months, rolling over year boundaries.
// PRE: ym is valid
// POST: Returns a valid YearMonth n months away
func (ym YearMonth) Add(n int) YearMonth {
	idx := ym.Year*12 + (ym.Month - 1) + n
	return YearMonth{Year: idx / 12, Month: idx%12 + 1}
}

// Next returns the following month.
func (ym YearMonth) Next() YearMonth { return ym.Add(1) }

// Prev returns the preceding month.
func (ym YearMonth) Prev() YearMonth { return ym.Add(-1) }

// First returns midnight on the first day of the month.
func (ym YearMonth) First() time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the month.
func (ym YearMonth) DaysInMonth() int {
	return ym.First().AddDate(0, 1, -1).Day()
}

// Key returns the month picker value, e.g. "2025-12".
func (ym YearMonth) Key() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Label returns a human heading, e.g. "December 2025".
func (ym YearMonth) Label() string {
	return ym.First().Format("January 2006")
}

// Contains reports whether the timestamp falls inside the month.
func (ym YearMonth) Contains(ts Timestamp) bool {
	return ts.Year() == ym.Year && int(ts.Month()) == ym.Month
}

// Timestamp is a wall-clock date-time with no timezone. It round-trips
// through JSON and SQLite as "YYYY-MM-DDTHH:MM:SS".
type Timestamp struct {
	time.Time
}

// NewTimestamp builds a naive timestamp from wall-clock parts.
func NewTimestamp(year, month, day, hour, minute int) Timestamp {
	return Timestamp{time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)}
}

// ParseTimestamp reads a timestamp, ignoring any zone information so the
// wall clock is preserved.
// PRE: none
// POST: Returns the timestamp or ErrInvalidTimestamp
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// String formats the timestamp in TimestampLayout.
func (ts Timestamp) String() string {
	return ts.Format(TimestampLayout)
}

// Before orders timestamps.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.Time.Before(other.Time)
}

// DateParts is the display breakdown of a timestamp.
type DateParts struct {
	Year    int
	Month   int
	Day     int
	Weekday string // short English name, e.g. "Sat"
	Time    string // 24h HH:MM
}

// Parts extracts display fields from the timestamp.
// PRE: none
// POST: Year/Month/Day equal the wall-clock date
func (ts Timestamp) Parts() DateParts {
	return DateParts{
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Day:     ts.Day(),
		Weekday: ts.Format("Mon"),
		Time:    ts.Format("15:04"),
	}
}

// DisplayDate renders "Sat, 20/12/2025".
func (p DateParts) DisplayDate() string {
	return fmt.Sprintf("%s, %d/%02d/%d", p.Weekday, p.Day, p.Month, p.Year)
}

// ISODate renders "2025-12-20".
func (p DateParts) ISODate() string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
}

// MarshalJSON writes the naive wire format.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(ts.String())), nil
}

// UnmarshalJSON reads any accepted layout.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimestamp, data)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Value stores the timestamp as TEXT.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.String(), nil
}

// Scan reads a TEXT timestamp column.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
	case []byte:
		return ts.Scan(string(v))
	case time.Time:
		*ts = Timestamp{time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), 0, time.UTC)}
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
	return nil
}

// ParseClock parses "HH:MM" into hour and minute.
// PRE: none
// POST: Returns 0<=hour<24, 0<=minute<60 or ErrInvalidTime
func ParseClock(hhmm string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, 0, ErrInvalidTime
	}
	return t.Hour(), t.Minute(), nil
}

// BuildTimestamp combines a calendar date and "HH:MM" into a timestamp with
// zero seconds.
// PRE: none
// POST: Returns the timestamp, or an error if the day or time is invalid
func BuildTimestamp(year, month, day int, hhmm string) (Timestamp, error) {
	ym, err := NewYearMonth(year, month)
	if err != nil {
		return Timestamp{}, err
	}
	if day < 1 || day > ym.DaysInMonth() {
		return Timestamp{}, ErrInvalidDay
	}
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return Timestamp{}, err
	}
	return NewTimestamp(year, month, day, hour, minute), nil
}

// FromDateTimeLocal converts an <input type="datetime-local"> value
// ("YYYY-MM-DDTHH:MM", optionally with seconds) into a timestamp.
func FromDateTimeLocal(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Timestamp{}, ErrInvalidTimestamp
	}
	return ParseTimestamp(value)
}

// EnumerateWeekdays returns one timestamp per day of ym whose weekday is in
// weekdays, in ascending date order, each at hhmm.
// PRE: weekdays holds values 0 (Sunday) through 6 (Saturday)
// POST: Every returned timestamp lies in ym and has a selected weekday
func EnumerateWeekdays(ym YearMonth, hhmm string, weekdays []int) ([]Timestamp, error) {
	if _, err := NewYearMonth(ym.Year, ym.Month); err != nil {
		return nil, err
	}
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return nil, err
	}
	selected := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		if wd < 0 || wd > 6 {
			return nil, ErrInvalidWeekday
		}
		selected[time.Weekday(wd)] = true
	}

	var out []Timestamp
	for day := 1; day <= ym.DaysInMonth(); day++ {
		ts := NewTimestamp(ym.Year, ym.Month, day, hour, minute)
		if selected[ts.Weekday()] {
			out = append(out, ts)
		}
	}
	return out, nil
}
