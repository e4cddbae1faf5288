// Package devapi serves the club REST API over the SQLite stores so the
// front end can run without the production backend.
package devapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"feeminton/internal/adapters/storage"
	attendanceStore "feeminton/internal/adapters/storage/attendance"
	groupStore "feeminton/internal/adapters/storage/group"
	memberStore "feeminton/internal/adapters/storage/member"
	scheduleStore "feeminton/internal/adapters/storage/schedule"
	"feeminton/internal/domain/attendance"
)

// Stores holds the repositories the handlers read and write.
type Stores struct {
	Groups      groupStore.Store
	Members     memberStore.Store
	Schedules   scheduleStore.Store
	Attendances attendanceStore.Store
}

// Server answers the REST API under /api/.
type Server struct {
	stores Stores
	now    func() time.Time
	refund decimal.Decimal
}

// NewServer creates a Server. A nil now uses time.Now.
// PRE: every store is set
// POST: Returns a server using attendance.DefaultSessionRefund
func NewServer(stores Stores, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{stores: stores, now: now, refund: attendance.DefaultSessionRefund}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/groups", s.handleGroups)
	mux.HandleFunc("/api/members", s.handleMembers)
	mux.HandleFunc("/api/members/", s.handleMember)
	mux.HandleFunc("/api/schedules", s.handleSchedules)
	mux.HandleFunc("/api/schedules/", s.handleSchedule)
	mux.HandleFunc("/api/attendances/", s.handleAttendance)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// envelope is the response shape the front end unwraps.
type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// storeError maps a store failure to a response. Missing rows become 404;
// anything else is logged and answered with a generic 500.
func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	slog.Error("internal_error", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID parses the positive integer that follows prefix in the request path.
func pathID(r *http.Request, prefix string) (int, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.Atoi(strings.Trim(rest, "/"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an optional positive integer query parameter. Missing
// yields 0; anything else that is not a positive integer is an error.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
