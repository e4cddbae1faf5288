package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feeminton/internal/application/projections"
	"feeminton/internal/application/schedulesview"
	"feeminton/internal/domain/calendar"
)

// ReplaceURLHeader carries the page URL a month change should replace the
// current history entry with.
const ReplaceURLHeader = "X-Replace-URL"

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") && !isHTMLRequest(r)
}

type groupRow struct {
	ID   int
	Name string
	Href string
}

// handleIndex handles GET / (the groups list)
func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cfg, client := apiFor(r)
	result, err := projections.QueryGroups(r.Context(), projections.GroupsDeps{Groups: client})
	var alert *schedulesview.Alert
	if err != nil {
		slog.Error("groups_event", "event", "load_failed", "error", err)
		alert = &schedulesview.Alert{Kind: schedulesview.AlertDanger, Message: "Failed to load groups: " + err.Error()}
	}

	rows := make([]groupRow, 0, len(result.Groups))
	for _, g := range result.Groups {
		q := url.Values{}
		q.Set("groupId", strconv.Itoa(g.ID))
		q.Set("groupName", g.Name)
		rows = append(rows, groupRow{ID: g.ID, Name: g.Name, Href: cfg.Link("/schedules?"+q.Encode(), nil)})
	}

	renderTemplate(w, r, "index.html", map[string]any{
		"Title":  "Groups",
		"Groups": rows,
		"Alert":  alert,
		"Loaded": err == nil,
	})
}

// handleSchedules handles GET /schedules?groupId&groupName&year&month
func handleSchedules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := parsePageParams(r.URL.Query())
	cfg, _ := apiFor(r)
	ctrl, key := controllerFor(r, p)

	// A load failure is reported through the view's alert.
	ctrl.SetMonth(r.Context(), p.Month)
	if flash := views.TakeFlash(key); flash != nil {
		ctrl.SetAlert(flash)
	}
	v := ctrl.Snapshot()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, buildGridPayload(cfg, v, r.URL.RequestURI()))
		return
	}

	newHref, icsHref := scheduleLinks(cfg, v)
	renderTemplate(w, r, "schedules.html", map[string]any{
		"Title":       v.Title,
		"View":        v,
		"Alert":       v.Alert,
		"NewHref":     newHref,
		"ICSHref":     icsHref,
		"MonthAction": "/schedules/month?" + r.URL.RawQuery,
		"MonthValue":  v.Month.Key(),
	})
}

type monthRequest struct {
	Action string `json:"action"` // prev, next or set
	Month  string `json:"month"`  // "YYYY-MM" for set
}

// handleScheduleMonth handles POST /schedules/month. JSON callers get the
// new grid and replace the URL in place; form posts are redirected.
func handleScheduleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input monthRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &input); err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid request"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input.Action = r.PostFormValue("action")
		input.Month = r.PostFormValue("month")
	}

	p := parsePageParams(r.URL.Query())
	target := p.Month
	switch input.Action {
	case "prev":
		target = p.Month.Prev()
	case "next":
		target = p.Month.Next()
	case "set":
		ym, err := calendar.ParseYearMonth(input.Month)
		if err != nil {
			if isJSONRequest(r) {
				writeJSON(w, http.StatusBadRequest, errorPayload{Error: fmt.Sprintf("Month %q is not valid.", input.Month)})
			} else {
				http.Error(w, "Invalid month", http.StatusBadRequest)
			}
			return
		}
		target = ym
	default:
		if isJSONRequest(r) {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: "action must be prev, next or set"})
		} else {
			http.Error(w, "Invalid action", http.StatusBadRequest)
		}
		return
	}

	// The page's own controller keeps its month; the new month has its own.
	next := p
	next.Month = target
	ctrl, _ := controllerFor(r, next)
	// Load failures surface through the view's alert.
	ctrl.SetMonth(r.Context(), target)

	pageURL := "/schedules?" + ctrl.MergeQuery(r.URL.Query()).Encode()
	w.Header().Set(ReplaceURLHeader, pageURL)
	slog.Debug("schedules_view_event", "event", "month_changed", "action", input.Action, "url", pageURL)

	if isJSONRequest(r) {
		cfg, _ := apiFor(r)
		writeJSON(w, http.StatusOK, buildGridPayload(cfg, ctrl.Snapshot(), pageURL))
		return
	}
	http.Redirect(w, r, pageURL, http.StatusSeeOther)
}

type toggleRequest struct {
	ScheduleID   int  `json:"scheduleId"`
	AttendanceID int  `json:"attendanceId"`
	Joined       bool `json:"joined"`
}

type togglePayload struct {
	Phase   string        `json:"phase"`
	Checked bool          `json:"checked"`
	Card    string        `json:"card"`
	Alert   *alertPayload `json:"alert,omitempty"`
}

// handleAttendanceToggle handles POST /attendances/toggle (JSON). The page
// has already flipped the switch; the response carries the reconciled card
// or the rolled back state plus the alert.
func handleAttendanceToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isJSONRequest(r) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorPayload{Error: "Content-Type must be application/json"})
		return
	}
	var input toggleRequest
	if err := strictDecode(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "Invalid request"})
		return
	}
	if locked(r) {
		writeJSON(w, http.StatusForbidden, errorPayload{Error: lockedMessage})
		return
	}

	p := parsePageParams(r.URL.Query())
	cfg, _ := apiFor(r)
	ctrl, ok := views.Lookup(viewKeyFor(r, cfg, p))
	if !ok {
		writeJSON(w, http.StatusConflict, errorPayload{Error: "This page is out of date. Reload to continue."})
		return
	}

	result, err := ctrl.ToggleAttendance(r.Context(), input.ScheduleID, input.AttendanceID, input.Joined)
	switch {
	case errors.Is(err, schedulesview.ErrControlBusy):
		writeJSON(w, http.StatusConflict, errorPayload{Error: fmt.Sprintf("Attendance #%d is still being updated.", input.AttendanceID)})
		return
	case errors.Is(err, schedulesview.ErrUnknownSchedule), errors.Is(err, schedulesview.ErrUnknownAttendance):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, togglePayload{
		Phase:   result.Phase.String(),
		Checked: result.Checked,
		Card:    string(result.Card),
		Alert:   toAlertPayload(result.Alert),
	})
}

// handleScheduleDelete handles GET (ask) and POST (confirm) for
// /schedules/delete?scheduleId&groupId&groupName&year&month. Both end on
// the schedules page; nothing is deleted without the POSTed nonce.
func handleScheduleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if locked(r) {
		http.Redirect(w, r, unlockHref(r), http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	p := parsePageParams(q)
	back := url.Values{}
	for k, v := range q {
		back[k] = v
	}
	back.Del("scheduleId")
	backHref := "/schedules?" + back.Encode()

	ctx := r.Context()
	ctrl, key := controllerFor(r, p)

	if r.Method == http.MethodGet {
		id, err := strconv.Atoi(q.Get("scheduleId"))
		if err != nil || id <= 0 {
			views.SetFlash(key, &schedulesview.Alert{Kind: schedulesview.AlertWarning, Message: "Missing scheduleId in URL."})
			http.Redirect(w, r, backHref, http.StatusSeeOther)
			return
		}
		if _, onGrid := ctrl.Card(id); !onGrid {
			ctrl.SetMonth(ctx, p.Month)
		}
		conf, err := ctrl.RequestDelete(id)
		if err != nil {
			views.SetFlash(key, &schedulesview.Alert{
				Kind:    schedulesview.AlertWarning,
				Message: fmt.Sprintf("Schedule #%d is not in %s.", id, p.Month.Label()),
			})
			http.Redirect(w, r, backHref, http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "schedule_delete.html", map[string]any{
			"Title":        "Delete schedule",
			"Confirmation": conf,
			"Action":       r.URL.RequestURI(),
			"BackHref":     backHref,
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	err := ctrl.ConfirmDelete(ctx, r.PostFormValue("nonce"))
	if errors.Is(err, schedulesview.ErrConfirmationRequired) {
		views.SetFlash(key, &schedulesview.Alert{
			Kind:    schedulesview.AlertWarning,
			Message: "The delete was not confirmed in time. Nothing was deleted.",
		})
	} else {
		views.SetFlash(key, ctrl.Snapshot().Alert)
	}
	http.Redirect(w, r, backHref, http.StatusSeeOther)
}
