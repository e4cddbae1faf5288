package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"feeminton/internal/adapters/api"
	"feeminton/internal/application/projections"
	"feeminton/internal/application/schedulesview"
)

// handleMemberDetails handles GET /members/details?memberId&groupId&groupName
func handleMemberDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	cfg, client := apiFor(r)

	backHref := "/"
	if strings.Contains(r.Referer(), "/schedules") {
		p := parsePageParams(q)
		backHref = "/schedules?" + p.query().Encode()
	}
	data := map[string]any{
		"Title":       "Member",
		"BackHref":    backHref,
		"RefreshHref": r.URL.RequestURI(),
	}

	id, err := strconv.Atoi(q.Get("memberId"))
	if err != nil || id <= 0 {
		data["Alert"] = &schedulesview.Alert{
			Kind:    schedulesview.AlertWarning,
			Message: "Missing memberId in URL. Example: /members/details?memberId=1",
		}
		renderTemplate(w, r, "member_details.html", data)
		return
	}

	details, err := projections.QueryMemberDetails(r.Context(), projections.MemberDetailsQuery{
		MemberID:  id,
		GroupName: q.Get("groupName"),
	}, projections.MemberDetailsDeps{Members: client})
	if err != nil {
		slog.Warn("member_event", "event", "load_failed", "member_id", id, "api", cfg.Param(), "error", err)
		msg := fmt.Sprintf("Failed to load member #%d: %v", id, err)
		if api.IsNotFound(err) {
			msg = fmt.Sprintf("Member #%d was not found.", id)
		}
		data["Alert"] = &schedulesview.Alert{Kind: schedulesview.AlertDanger, Message: msg}
		renderTemplate(w, r, "member_details.html", data)
		return
	}

	data["Title"] = details.Title
	data["Details"] = details
	renderTemplate(w, r, "member_details.html", data)
}
