package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeminton/internal/adapters/http/perf"
	"feeminton/internal/domain/calendar"
	"feeminton/pkg/requestid"
)

// recordedCall captures one request seen by the fake API.
type recordedCall struct {
	Method    string
	Path      string
	Query     string
	Body      string
	RequestID string
	CType     string
}

// fakeAPI is a scripted REST API keyed by "METHOD /path".
type fakeAPI struct {
	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Body:      string(body),
			RequestID: r.Header.Get(requestid.Header),
			CType:     r.Header.Get("Content-Type"),
		})
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) handle(key string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (f *fakeAPI) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestClient(srv *httptest.Server) *Client {
	hc := &http.Client{Transport: NewTimedTransport(nil, nil, nil), Timeout: 5 * time.Second}
	return NewClient(NewConfig(srv.URL+"/api"), hc)
}

func TestClient_GetScheduleByID_Envelope(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/schedules/7", 200, `{"data":{"id":7,"groupId":2,"scheduleDate":"2025-12-20T14:48:00","attendances":[
		{"attendanceId":11,"memberId":3,"memberName":"bob","joined":true,"refundAmount":0},
		{"attendanceId":12,"memberId":4,"memberName":"Alice","joined":false,"refundAmount":20}]}}`)

	got, err := newTestClient(srv).GetScheduleByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetScheduleByID: %v", err)
	}
	if got.ID != 7 || got.GroupID != 2 || got.ScheduleDate.String() != "2025-12-20T14:48:00" {
		t.Errorf("schedule = %+v", got)
	}
	if len(got.Attendances) != 2 || !got.Attendances[1].RefundAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("attendances = %+v", got.Attendances)
	}
}

func TestClient_GetScheduleByID_BareBody(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/schedules/8", 200, `{"id":8,"groupId":1,"scheduleDate":"2025-12-06T09:00:00","attendances":[]}`)

	got, err := newTestClient(srv).GetScheduleByID(context.Background(), 8)
	if err != nil {
		t.Fatalf("GetScheduleByID: %v", err)
	}
	if got.ID != 8 {
		t.Errorf("ID = %d, want 8", got.ID)
	}
}

func TestClient_NullDataFallsBackToBody(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/members/5", 200, `{"data":null,"id":5,"nickname":"Kim","groupId":1,"memberFee":"12.5"}`)

	got, err := newTestClient(srv).GetMember(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if got.ID != 5 || got.Nickname != "Kim" || !got.MemberFee.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("member = %+v", got)
	}
}

func TestClient_GetSchedulesForMonth_Query(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/schedules", 200, `{"data":[{"id":1,"groupId":2,"scheduleDate":"2025-12-06T09:00:00","attendances":[]}]}`)

	client := newTestClient(srv)
	list, err := client.GetSchedulesForMonth(context.Background(), calendar.YearMonth{Year: 2025, Month: 12}, 2)
	if err != nil {
		t.Fatalf("GetSchedulesForMonth: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if q := f.lastCall().Query; q != "groupId=2&month=12&year=2025" {
		t.Errorf("query = %q", q)
	}

	if _, err := client.GetSchedulesForMonth(context.Background(), calendar.YearMonth{Year: 2025, Month: 12}, 0); err != nil {
		t.Fatal(err)
	}
	if q := f.lastCall().Query; strings.Contains(q, "groupId") {
		t.Errorf("groupId should be omitted when 0, query = %q", q)
	}
}

func TestClient_GetSchedulesForMonth_NonArray(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/schedules", 200, `{"data":{"message":"nothing here"}}`)

	list, err := newTestClient(srv).GetSchedulesForMonth(context.Background(), calendar.YearMonth{Year: 2025, Month: 1}, 0)
	if err != nil {
		t.Fatalf("GetSchedulesForMonth: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %v, want empty non-nil", list)
	}
}

func TestClient_RequestError(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("PATCH /api/attendances/12", 500, "boom\n")

	_, err := newTestClient(srv).PatchAttendance(context.Background(), 12, false)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %T %v, want *RequestError", err, err)
	}
	if reqErr.StatusCode != 500 || reqErr.Status != "Internal Server Error" || reqErr.Body != "boom" {
		t.Errorf("RequestError = %+v", reqErr)
	}
	if err.Error() != "500 Internal Server Error - boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClient_RequestErrorBodyTruncated(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("DELETE /api/schedules/3", 400, strings.Repeat("x", 2000))

	err := newTestClient(srv).DeleteSchedule(context.Background(), 3)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if len(reqErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(reqErr.Body), maxErrorBody)
	}
}

func TestClient_NotFound(t *testing.T) {
	_, srv := newFakeAPI(t)
	_, err := newTestClient(srv).GetScheduleByID(context.Background(), 99)
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	_, srv := newFakeAPI(t)
	client := newTestClient(srv)
	srv.Close()

	_, err := client.GetGroups(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %T %v, want *NetworkError", err, err)
	}
	if netErr.Error() == "" || netErr.Unwrap() == nil {
		t.Error("NetworkError should carry the transport error")
	}
}

func TestClient_CreateSchedule(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID int
	}{
		{"object", `{"data":{"id":41,"groupId":2,"scheduleDate":"2025-12-20T14:48:00"}}`, 41},
		{"bare id", `42`, 42},
		{"enveloped id", `{"data":43}`, 43},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeAPI(t)
			f.handle("POST /api/schedules", 201, tt.body)

			at := calendar.NewTimestamp(2025, 12, 20, 14, 48)
			got, err := newTestClient(srv).CreateSchedule(context.Background(), at, 2)
			if err != nil {
				t.Fatalf("CreateSchedule: %v", err)
			}
			if got.ID != tt.wantID || got.GroupID != 2 || got.ScheduleDate.String() != "2025-12-20T14:48:00" {
				t.Errorf("created = %+v", got)
			}

			var sent map[string]any
			if err := json.Unmarshal([]byte(f.lastCall().Body), &sent); err != nil {
				t.Fatalf("request body: %v", err)
			}
			if sent["scheduleDate"] != "2025-12-20T14:48:00" || sent["groupId"] != float64(2) {
				t.Errorf("request body = %v", sent)
			}
		})
	}
}

func TestClient_PatchAttendance(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantJoined bool
		wantRefund string
	}{
		{"full record", `{"data":{"attendanceId":12,"joined":true,"memberId":3,"memberName":"bob","refundAmount":0}}`, true, "0"},
		{"server disagrees", `{"data":{"attendanceId":12,"joined":true,"refundAmount":0}}`, true, "0"},
		{"empty body", ``, false, "0"},
		{"no joined field", `{"data":{"attendanceId":12,"refundAmount":20}}`, false, "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeAPI(t)
			f.handle("PATCH /api/attendances/12", 200, tt.body)

			got, err := newTestClient(srv).PatchAttendance(context.Background(), 12, false)
			if err != nil {
				t.Fatalf("PatchAttendance: %v", err)
			}
			if got.ID != 12 || got.Joined != tt.wantJoined || !got.RefundAmount.Equal(decimal.RequireFromString(tt.wantRefund)) {
				t.Errorf("attendance = %+v", got)
			}
			if body := f.lastCall().Body; body != `{"joined":false}` {
				t.Errorf("request body = %q", body)
			}
		})
	}
}

func TestClient_HeadersAndRequestID(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/groups", 200, `{"data":[{"id":1,"name":"Tuesday"}]}`)
	client := newTestClient(srv)

	if _, err := client.GetGroups(context.Background()); err != nil {
		t.Fatal(err)
	}
	call := f.lastCall()
	if call.CType != "application/json" {
		t.Errorf("Content-Type = %q", call.CType)
	}
	if _, err := uuid.Parse(call.RequestID); err != nil {
		t.Errorf("generated request ID %q is not a UUID", call.RequestID)
	}

	ctx := requestid.NewContext(context.Background(), "3f0e4f57-9a76-4f43-a1c1-2a5bb6c1e4a1")
	if _, err := client.GetGroups(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.lastCall().RequestID; got != "3f0e4f57-9a76-4f43-a1c1-2a5bb6c1e4a1" {
		t.Errorf("propagated request ID = %q", got)
	}
}

type mockObserver struct {
	mu    sync.Mutex
	calls []string
}

// ObserveUpstream records the route and status.
// PRE: none
// POST: One entry appended per call
func (m *mockObserver) ObserveUpstream(method, route string, status int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method+" "+route+" "+http.StatusText(status))
}

func TestTimedTransport_RecordsUpstream(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle("GET /api/schedules/5", 200, `{"id":5,"groupId":1,"scheduleDate":"2025-12-06T09:00:00"}`)

	collector := perf.NewCollector(10)
	obs := &mockObserver{}
	hc := &http.Client{Transport: NewTimedTransport(nil, collector, obs)}
	client := NewClient(NewConfig(srv.URL+"/api"), hc)

	if _, err := client.GetScheduleByID(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
	if len(obs.calls) != 1 || obs.calls[0] != "GET /api/schedules/{id} OK" {
		t.Errorf("observer calls = %v", obs.calls)
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/dev/api/schedules/17":  "/dev/api/schedules/{id}",
		"/api/attendances/3":     "/api/attendances/{id}",
		"/api/schedules":         "/api/schedules",
		"/api/members/12/extras": "/api/members/{id}/extras",
	}
	for in, want := range tests {
		if got := NormalizeRoute(in); got != want {
			t.Errorf("NormalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}
