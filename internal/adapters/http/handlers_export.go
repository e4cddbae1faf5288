package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"feeminton/internal/adapters/http/middleware"
	"feeminton/internal/adapters/icalexport"
	"feeminton/internal/application/orchestrators"
	"feeminton/internal/application/projections"
	"feeminton/internal/application/schedulesview"
)

// handleScheduleExport handles GET /schedules.ics?groupId&groupName&year&month
func handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := parsePageParams(r.URL.Query())
	cfg, client := apiFor(r)

	result, err := projections.QueryMonthSchedules(r.Context(), projections.MonthSchedulesQuery{
		Month:   p.Month,
		GroupID: p.GroupID,
	}, projections.MonthSchedulesDeps{Schedules: client})
	if err != nil {
		slog.Warn("export_event", "event", "load_failed", "api", cfg.Param(), "error", err)
		http.Error(w, "Failed to load schedules: "+err.Error(), http.StatusBadGateway)
		return
	}

	// Encode fully before writing so a failure can still change the status.
	var buf bytes.Buffer
	if err := icalexport.Encode(&buf, result.Schedules, p.Month, icalexport.Options{
		GroupName: p.GroupName,
		Now:       timeNow(),
	}); err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="schedules-%s.ics"`, p.Month.Key()))
	w.Write(buf.Bytes())
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// handleUnlock handles GET (form) and POST (passcode) for /unlock?next
func handleUnlock(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	render := func(alert *schedulesview.Alert) {
		renderTemplate(w, r, "unlock.html", map[string]any{
			"Title":  "Organizer unlock",
			"Alert":  alert,
			"Action": r.URL.RequestURI(),
			"Next":   next,
		})
	}

	if !services.Gate.Enabled() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		render(nil)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		sess, ok := middleware.GetSessionFromContext(r.Context())
		if !ok {
			render(&schedulesview.Alert{Kind: schedulesview.AlertWarning, Message: "Session expired, reload the page."})
			return
		}
		err := orchestrators.ExecuteUnlockOrganizer(r.Context(), orchestrators.UnlockOrganizerInput{
			SessionToken: sess.Token,
			Passcode:     r.PostFormValue("passcode"),
		}, orchestrators.UnlockOrganizerDeps{Gate: services.Gate, Sessions: sessions})
		if errors.Is(err, orchestrators.ErrInvalidPasscode) {
			render(&schedulesview.Alert{Kind: schedulesview.AlertDanger, Message: "Wrong passcode."})
			return
		}
		if err != nil {
			render(&schedulesview.Alert{Kind: schedulesview.AlertWarning, Message: err.Error()})
			return
		}
		slog.Info("organizer_event", "event", "unlocked")
		http.Redirect(w, r, next, http.StatusSeeOther)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePerf handles GET /perf?minutes&top (JSON snapshot of recent timings)
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if locked(r) {
		writeJSON(w, http.StatusForbidden, errorPayload{Error: lockedMessage})
		return
	}
	if perfCollector == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorPayload{Error: "timing is not collected"})
		return
	}

	minutes := 15
	if n, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && n > 0 && n <= 24*60 {
		minutes = n
	}
	top := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n >= 0 && n <= 100 {
		top = n
	}
	since := timeNow().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, top))
}
