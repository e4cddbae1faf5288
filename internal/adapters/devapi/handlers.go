package devapi

import (
	"log/slog"
	"net/http"
	"strings"

	memberStore "feeminton/internal/adapters/storage/member"
	scheduleStore "feeminton/internal/adapters/storage/schedule"
	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/member"
	"feeminton/internal/domain/schedule"
)

// handleGroups handles GET /api/groups
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	groups, err := s.stores.Groups.List(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	writeData(w, http.StatusOK, groups)
}

// handleMembers handles GET /api/members?groupId=N
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	groupID, err := queryInt(r, "groupId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	members, err := s.stores.Members.List(r.Context(), memberStore.ListFilter{GroupID: groupID})
	if err != nil {
		storeError(w, err)
		return
	}
	writeData(w, http.StatusOK, members)
}

// handleMember handles GET /api/members/{id} with the billing figures filled
// in: refunds earned this month and next month's estimated bill.
func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(r, "/api/members/")
	if !ok {
		writeError(w, http.StatusBadRequest, "member id must be a positive integer")
		return
	}
	ctx := r.Context()

	m, err := s.stores.Members.GetByID(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}
	current := calendar.MonthOf(s.now())
	refund, err := s.stores.Attendances.RefundTotal(ctx, m.ID, current)
	if err != nil {
		storeError(w, err)
		return
	}
	sessions, err := s.stores.Schedules.CountInMonth(ctx, m.GroupID, current.Next())
	if err != nil {
		storeError(w, err)
		return
	}
	m.CurrentMonthRefund = refund
	m.EstimatedBillNextMonth = member.EstimateNextMonthBill(m.MemberFee, sessions, refund)
	writeData(w, http.StatusOK, m)
}

type createScheduleRequest struct {
	ScheduleDate calendar.Timestamp `json:"scheduleDate"`
	GroupID      int                `json:"groupId"`
}

// handleSchedules handles GET (month list) and POST (create) for /api/schedules
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == http.MethodGet {
		filter, err := scheduleFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		list, err := s.stores.Schedules.List(ctx, filter)
		if err != nil {
			storeError(w, err)
			return
		}
		writeData(w, http.StatusOK, list)
		return
	}

	if r.Method == http.MethodPost {
		var input createScheduleRequest
		if err := strictDecode(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		entity := schedule.Schedule{GroupID: input.GroupID, ScheduleDate: input.ScheduleDate}
		if err := entity.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := s.stores.Groups.GetByID(ctx, input.GroupID); err != nil {
			storeError(w, err)
			return
		}
		id, err := s.stores.Schedules.Create(ctx, entity)
		if err != nil {
			storeError(w, err)
			return
		}
		slog.Info("devapi_event", "event", "schedule_created", "schedule_id", id, "group_id", input.GroupID, "at", input.ScheduleDate.String())
		writeData(w, http.StatusCreated, id)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// scheduleFilter reads year, month and groupId. Year and month go together;
// either one alone is rejected.
func scheduleFilter(r *http.Request) (scheduleStore.ListFilter, error) {
	var filter scheduleStore.ListFilter
	groupID, err := queryInt(r, "groupId")
	if err != nil {
		return filter, err
	}
	filter.GroupID = groupID

	year, err := queryInt(r, "year")
	if err != nil {
		return filter, err
	}
	month, err := queryInt(r, "month")
	if err != nil {
		return filter, err
	}
	if year == 0 && month == 0 {
		return filter, nil
	}
	ym, err := calendar.NewYearMonth(year, month)
	if err != nil {
		return filter, err
	}
	filter.Month = &ym
	return filter, nil
}

// handleSchedule handles GET and DELETE for /api/schedules/{id}, plus the
// legacy PATCH /api/schedules/attendance/{id}.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/schedules/attendance/") {
		s.patchAttendance(w, r, "/api/schedules/attendance/")
		return
	}

	id, ok := pathID(r, "/api/schedules/")
	if !ok {
		writeError(w, http.StatusBadRequest, "schedule id must be a positive integer")
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		entity, err := s.stores.Schedules.GetByID(ctx, id)
		if err != nil {
			storeError(w, err)
			return
		}
		writeData(w, http.StatusOK, entity)
	case http.MethodDelete:
		if err := s.stores.Schedules.Delete(ctx, id); err != nil {
			storeError(w, err)
			return
		}
		slog.Info("devapi_event", "event", "schedule_deleted", "schedule_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAttendance handles PATCH /api/attendances/{id}
func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	s.patchAttendance(w, r, "/api/attendances/")
}

type patchAttendanceRequest struct {
	Joined *bool `json:"joined"`
}

// patchAttendance flips the joined flag and recomputes the refund of that
// attendance: unjoined earns the per-session refund, joined earns nothing.
func (s *Server) patchAttendance(w http.ResponseWriter, r *http.Request, prefix string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(r, prefix)
	if !ok {
		writeError(w, http.StatusBadRequest, "attendance id must be a positive integer")
		return
	}
	var input patchAttendanceRequest
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if input.Joined == nil {
		writeError(w, http.StatusBadRequest, "joined is required")
		return
	}

	joined := *input.Joined
	updated, err := s.stores.Attendances.SetJoined(r.Context(), id, joined, attendance.RefundFor(joined, s.refund))
	if err != nil {
		storeError(w, err)
		return
	}
	slog.Info("devapi_event", "event", "attendance_updated", "attendance_id", id, "joined", joined, "refund", updated.RefundAmount.String())
	writeData(w, http.StatusOK, updated)
}
