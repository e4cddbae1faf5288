package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"feeminton/internal/application/orchestrators"
	"feeminton/internal/application/schedulesview"
	"feeminton/pkg/requestid"
)

// weekdayOption is one checkbox of the recurring form.
type weekdayOption struct {
	Value   int
	Label   string
	Checked bool
}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type createForm struct {
	SingleGroupID    string
	SingleDateTime   string
	RecurringGroupID string
	RecurringMonth   string
	RecurringTime    string
	Weekdays         []weekdayOption
}

func newCreateForm(p pageParams, selected map[int]bool) createForm {
	gid := ""
	if p.GroupID > 0 {
		gid = strconv.Itoa(p.GroupID)
	}
	f := createForm{
		SingleGroupID:    gid,
		RecurringGroupID: gid,
		RecurringMonth:   p.Month.Key(),
	}
	for i, label := range weekdayLabels {
		f.Weekdays = append(f.Weekdays, weekdayOption{Value: i, Label: label, Checked: selected[i]})
	}
	return f
}

// handleScheduleNew handles GET (form) and POST (single or recurring create)
// for /schedules/new?groupId&groupName&year&month
func handleScheduleNew(w http.ResponseWriter, r *http.Request) {
	p := parsePageParams(r.URL.Query())

	title := "Create Schedule"
	if p.GroupName != "" {
		title = fmt.Sprintf("Create Schedule • %s (#%d)", p.GroupName, p.GroupID)
	}
	render := func(form createForm, alert *schedulesview.Alert) {
		renderTemplate(w, r, "schedule_new.html", map[string]any{
			"Title":    title,
			"Subtitle": "Target month: " + p.Month.Key(),
			"Form":     form,
			"Alert":    alert,
			"Action":   r.URL.RequestURI(),
			"BackHref": "/schedules?" + p.query().Encode(),
		})
	}

	if r.Method == http.MethodGet {
		render(newCreateForm(p, nil), nil)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	selected := map[int]bool{}
	var weekdays []int
	for _, v := range r.PostForm["weekday"] {
		if d, err := strconv.Atoi(v); err == nil && d >= 0 && d <= 6 && !selected[d] {
			selected[d] = true
			weekdays = append(weekdays, d)
		}
	}
	form := newCreateForm(p, selected)
	form.SingleGroupID = strings.TrimSpace(r.PostFormValue("singleGroupId"))
	form.SingleDateTime = r.PostFormValue("singleDateTime")
	form.RecurringGroupID = strings.TrimSpace(r.PostFormValue("recurringGroupId"))
	form.RecurringMonth = r.PostFormValue("recurringMonth")
	form.RecurringTime = r.PostFormValue("recurringTime")

	if locked(r) {
		render(form, &schedulesview.Alert{Kind: schedulesview.AlertWarning, Message: lockedMessage})
		return
	}

	_, client := apiFor(r)
	ctx := r.Context()

	switch r.PostFormValue("mode") {
	case "single":
		groupID, _ := strconv.Atoi(form.SingleGroupID)
		created, err := orchestrators.ExecuteCreateSchedule(ctx, orchestrators.CreateScheduleInput{
			GroupID:       groupID,
			DateTimeLocal: form.SingleDateTime,
		}, orchestrators.CreateScheduleDeps{Creator: client})
		if err != nil {
			render(form, createAlert(err))
			return
		}
		if services.Metrics != nil {
			services.Metrics.SchedulesCreated("single", 1)
		}
		// Back to the page's own group and month.
		msg := "Schedule created."
		if created.ID > 0 {
			msg = fmt.Sprintf("Schedule #%d created.", created.ID)
		}
		redirectWithFlash(w, r, p, &schedulesview.Alert{Kind: schedulesview.AlertSuccess, Message: msg})

	case "recurring":
		groupID, _ := strconv.Atoi(form.RecurringGroupID)
		result, err := orchestrators.ExecuteCreateRecurringSchedules(ctx, orchestrators.CreateRecurringInput{
			GroupID:  groupID,
			Month:    form.RecurringMonth,
			Time:     form.RecurringTime,
			Weekdays: weekdays,
		}, orchestrators.CreateRecurringDeps{Creator: client})

		var validation *orchestrators.ValidationError
		if errors.As(err, &validation) {
			render(form, createAlert(err))
			return
		}
		if services.Metrics != nil {
			services.Metrics.SchedulesCreated("recurring", len(result.Created))
		}
		sendDigest(ctx, r, groupID, p, result, err)
		if err != nil {
			render(form, createAlert(err))
			return
		}
		target := pageParams{GroupID: p.GroupID, GroupName: p.GroupName, Month: result.Month}
		redirectWithFlash(w, r, target, &schedulesview.Alert{
			Kind:    schedulesview.AlertSuccess,
			Message: fmt.Sprintf("Created %d schedules for %s.", len(result.Created), result.Month.Label()),
		})

	default:
		http.Error(w, "Invalid mode", http.StatusBadRequest)
	}
}

// createAlert maps an orchestrator error onto the banner.
func createAlert(err error) *schedulesview.Alert {
	var validation *orchestrators.ValidationError
	if errors.As(err, &validation) {
		kind := schedulesview.AlertWarning
		if validation.Level == orchestrators.LevelInfo {
			kind = schedulesview.AlertInfo
		}
		return &schedulesview.Alert{Kind: kind, Message: validation.Message}
	}
	return &schedulesview.Alert{Kind: schedulesview.AlertDanger, Message: err.Error()}
}

// redirectWithFlash sends the browser to the schedules page of p and leaves
// alert for it to show.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, p pageParams, alert *schedulesview.Alert) {
	cfg, _ := apiFor(r)
	controllerFor(r, p)
	views.SetFlash(viewKeyFor(r, cfg, p), alert)
	http.Redirect(w, r, cfg.Link("/schedules?"+p.query().Encode(), nil), http.StatusSeeOther)
}

// sendDigest mails the batch summary when a digest recipient is configured.
// Failures are logged only; the batch outcome stands on its own.
func sendDigest(ctx context.Context, r *http.Request, groupID int, p pageParams, result orchestrators.CreateRecurringResult, batchErr error) {
	if len(digestTo) == 0 || len(result.Planned) == 0 {
		return
	}
	groupName := ""
	if groupID == p.GroupID {
		groupName = p.GroupName
	}
	_, err := orchestrators.ExecuteSendScheduleDigest(context.WithoutCancel(ctx), orchestrators.SendDigestInput{
		GroupID:   groupID,
		GroupName: groupName,
		Month:     result.Month,
		Created:   result.Created,
		Planned:   len(result.Planned),
		Failure:   batchErr,
		RequestID: requestid.FromContext(r.Context()),
	}, orchestrators.SendDigestDeps{Sender: emailSender, To: digestTo, From: digestFrom})
	if err != nil {
		slog.Warn("digest_event", "event", "skipped", "group_id", groupID, "error", err)
	}
}
