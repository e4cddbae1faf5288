package schedulesview

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/url"
	"strconv"

	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/schedule"
)

//go:embed card.tmpl
var cardFS embed.FS

var cardTemplate = template.Must(template.ParseFS(cardFS, "card.tmpl"))

// CardOptions are the inputs besides the schedule that shape a card.
type CardOptions struct {
	GroupName string
	Link      func(href string) string // adds the api parameter; nil leaves hrefs as is
	Disabled  map[int]bool             // attendance IDs whose switch is disabled
	ReadOnly  bool                     // hides the delete button and disables every switch
}

type cardRow struct {
	ID         int
	Name       string
	MemberHref string
	Joined     bool
	Icon       string
	Status     string
	Refund     string
	Disabled   bool
}

type cardData struct {
	ID          int
	DisplayDate string
	Time        string
	ISODate     string
	DateText    string
	DeleteHref  string
	ReadOnly    bool
	Rows        []cardRow
	JoinedCount int
	Total       int
}

// RenderCard renders one schedule card. It reads nothing but its arguments,
// so identical input gives identical markup.
// PRE: s has a non-zero date
// POST: Attendees appear sorted by name ignoring case; the footer shows
// joined/total
func RenderCard(s schedule.Schedule, opts CardOptions) template.HTML {
	link := opts.Link
	if link == nil {
		link = func(href string) string { return href }
	}
	parts := s.ScheduleDate.Parts()

	data := cardData{
		ID:          s.ID,
		DisplayDate: parts.DisplayDate(),
		Time:        parts.Time,
		ISODate:     parts.ISODate(),
		DateText:    DateText(s),
		DeleteHref:  link(deleteHref(s, opts.GroupName)),
		ReadOnly:    opts.ReadOnly,
		JoinedCount: s.JoinedCount(),
		Total:       len(s.Attendances),
	}
	for _, a := range s.SortedAttendances() {
		data.Rows = append(data.Rows, cardRow{
			ID:         a.ID,
			Name:       a.MemberName,
			MemberHref: link(memberHref(a, s.GroupID, opts.GroupName)),
			Joined:     a.Joined,
			Icon:       attendance.StatusIcon(a.Joined),
			Status:     attendance.StatusLabel(a.Joined),
			Refund:     a.RefundAmount.String(),
			Disabled:   opts.ReadOnly || opts.Disabled[a.ID],
		})
	}

	var buf bytes.Buffer
	if err := cardTemplate.ExecuteTemplate(&buf, "card", data); err != nil {
		slog.Error("card_render_failed", "schedule_id", s.ID, "error", err)
		return template.HTML(`<div class="card schedule-card" data-schedule-id="` + strconv.Itoa(s.ID) + `">Could not render schedule.</div>`)
	}
	return template.HTML(buf.String())
}

// DateText is the human date used in the delete confirmation, e.g.
// "Sat, 20/12/2025 14:48".
func DateText(s schedule.Schedule) string {
	p := s.ScheduleDate.Parts()
	return p.DisplayDate() + " " + p.Time
}

func memberHref(a attendance.Attendance, groupID int, groupName string) string {
	q := url.Values{}
	q.Set("memberId", strconv.Itoa(a.MemberID))
	q.Set("groupId", strconv.Itoa(groupID))
	q.Set("groupName", groupName)
	return "/members/details?" + q.Encode()
}

func deleteHref(s schedule.Schedule, groupName string) string {
	q := url.Values{}
	q.Set("scheduleId", strconv.Itoa(s.ID))
	q.Set("groupId", strconv.Itoa(s.GroupID))
	q.Set("groupName", groupName)
	q.Set("year", strconv.Itoa(s.ScheduleDate.Year()))
	q.Set("month", strconv.Itoa(int(s.ScheduleDate.Month())))
	return "/schedules/delete?" + q.Encode()
}
