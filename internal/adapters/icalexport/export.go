// Package icalexport renders a month of schedules as an iCalendar feed.
package icalexport

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// DefaultDuration is the length given to a session; the API stores only the start.
const DefaultDuration = 90 * time.Minute

const productID = "-//Feeminton//Schedules//EN"

// Options tune the feed.
type Options struct {
	GroupName string
	Duration  time.Duration // 0 means DefaultDuration
	Now       time.Time     // DTSTAMP; zero means time.Now()
}

// UID returns the stable event UID of a schedule.
func UID(scheduleID int) string {
	return "schedule-" + strconv.Itoa(scheduleID) + "@feeminton"
}

// BuildCalendar turns schedules into a VCALENDAR with one VEVENT each.
// Start times are floating: the API has no zone, so clients show the wall
// clock as stored.
// PRE: schedules have non-zero dates
// POST: One VEVENT per schedule, in input order
func BuildCalendar(schedules []schedule.Schedule, ym calendar.YearMonth, opts Options) *ical.Calendar {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	name := "Schedules " + ym.Label()
	if opts.GroupName != "" {
		name = opts.GroupName + " • " + ym.Label()
	}
	cal.Props.SetText("X-WR-CALNAME", name)

	for _, s := range schedules {
		start := floating(s.ScheduleDate)
		event := ical.NewComponent(ical.CompEvent)
		event.Props.SetText(ical.PropUID, UID(s.ID))
		event.Props.SetDateTime(ical.PropDateTimeStamp, opts.Now.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(opts.Duration))
		event.Props.SetText(ical.PropSummary, summary(s, opts.GroupName))
		event.Props.SetText(ical.PropDescription, fmt.Sprintf("%d/%d joined", s.JoinedCount(), len(s.Attendances)))
		cal.Children = append(cal.Children, event)
	}
	return cal
}

// Encode writes the feed for schedules to w.
// PRE: w is writable
// POST: A complete VCALENDAR is written, or an error is returned
func Encode(w io.Writer, schedules []schedule.Schedule, ym calendar.YearMonth, opts Options) error {
	cal := BuildCalendar(schedules, ym, opts)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return nil
}

func summary(s schedule.Schedule, groupName string) string {
	title := "Badminton"
	if groupName != "" {
		title = groupName
	}
	return fmt.Sprintf("%s (#%d)", title, s.ID)
}

// floating re-anchors the wall clock in time.Local, which go-ical writes
// without a zone.
func floating(ts calendar.Timestamp) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, time.Local)
}
