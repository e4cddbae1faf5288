package schedulesview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"feeminton/internal/adapters/api"
	"feeminton/internal/application/projections"
	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

var december2025 = calendar.YearMonth{Year: 2025, Month: 12}

// mockAPI is an in-memory REST API. The schedules slice is the server truth.
type mockAPI struct {
	mu        sync.Mutex
	schedules []schedule.Schedule
	monthErr  error
	directErr error
	patchErr  error
	deleteErr error

	// blockID makes PatchAttendance for that attendance wait on block after
	// signalling started.
	blockID int
	block   chan struct{}
	started chan struct{}

	monthCalls  []calendar.YearMonth
	directCalls int
	patchCalls  []int
	deleteCalls []int
}

func newMockAPI() *mockAPI {
	return &mockAPI{schedules: []schedule.Schedule{
		{
			ID:           7,
			GroupID:      2,
			ScheduleDate: calendar.NewTimestamp(2025, 12, 20, 14, 48),
			Attendances: []attendance.Attendance{
				{ID: 11, MemberID: 5, MemberName: "bob", Joined: true, RefundAmount: decimal.Zero},
				{ID: 12, MemberID: 6, MemberName: "Alice", Joined: false, RefundAmount: decimal.NewFromInt(20)},
			},
		},
		{
			ID:           8,
			GroupID:      2,
			ScheduleDate: calendar.NewTimestamp(2025, 12, 6, 9, 0),
			Attendances: []attendance.Attendance{
				{ID: 21, MemberID: 5, MemberName: "bob", Joined: true, RefundAmount: decimal.Zero},
			},
		},
	}}
}

// GetSchedulesForMonth returns copies of the server schedules.
// PRE: ym is valid
// POST: monthCalls records ym
func (m *mockAPI) GetSchedulesForMonth(_ context.Context, ym calendar.YearMonth, _ int) ([]schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthCalls = append(m.monthCalls, ym)
	if m.monthErr != nil {
		return nil, m.monthErr
	}
	out := make([]schedule.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s.Clone())
	}
	return out, nil
}

// GetScheduleByID returns one server schedule or a 404.
// PRE: id > 0
// POST: directCalls incremented
func (m *mockAPI) GetScheduleByID(_ context.Context, id int) (schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directCalls++
	if m.directErr != nil {
		return schedule.Schedule{}, m.directErr
	}
	for _, s := range m.schedules {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return schedule.Schedule{}, &api.RequestError{StatusCode: 404, Status: "Not Found"}
}

// PatchAttendance flips the joined flag and recomputes the refund.
// PRE: id > 0
// POST: patchCalls records id; server truth updated unless patchErr is set
func (m *mockAPI) PatchAttendance(_ context.Context, id int, joined bool) (attendance.Attendance, error) {
	m.mu.Lock()
	m.patchCalls = append(m.patchCalls, id)
	block := m.block
	blocked := block != nil && id == m.blockID
	m.mu.Unlock()

	if blocked {
		m.started <- struct{}{}
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.patchErr != nil {
		return attendance.Attendance{}, m.patchErr
	}
	for i := range m.schedules {
		for j := range m.schedules[i].Attendances {
			a := &m.schedules[i].Attendances[j]
			if a.ID == id {
				a.Joined = joined
				a.RefundAmount = attendance.RefundFor(joined, attendance.DefaultSessionRefund)
				return *a, nil
			}
		}
	}
	return attendance.Attendance{}, &api.RequestError{StatusCode: 404, Status: "Not Found"}
}

// DeleteSchedule removes a schedule from the server.
// PRE: id > 0
// POST: deleteCalls records id
func (m *mockAPI) DeleteSchedule(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, s := range m.schedules {
		if s.ID == id {
			m.schedules = append(m.schedules[:i], m.schedules[i+1:]...)
			return nil
		}
	}
	return &api.RequestError{StatusCode: 404, Status: "Not Found"}
}

func (m *mockAPI) removeSchedule(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.schedules {
		if s.ID == id {
			m.schedules = append(m.schedules[:i], m.schedules[i+1:]...)
			return
		}
	}
}

type mockObserver struct {
	mu        sync.Mutex
	outcomes  []string
	fallbacks int
}

// ToggleOutcome records an outcome.
// PRE: none
// POST: outcomes grows by one
func (o *mockObserver) ToggleOutcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// RefreshFallback counts a fallback.
// PRE: none
// POST: fallbacks incremented
func (o *mockObserver) RefreshFallback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks++
}

func loadedController(t *testing.T, m *mockAPI, obs *mockObserver) *Controller {
	t.Helper()
	opts := Options{}
	if obs != nil {
		opts.Observer = obs
	}
	c := NewController(m, State{GroupID: 2, GroupName: "Tuesday Club", Month: december2025}, opts)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestController_Load(t *testing.T) {
	c := loadedController(t, newMockAPI(), nil)

	v := c.Snapshot()
	if len(v.Cards) != 2 || v.Cards[0].ScheduleID != 8 || v.Cards[1].ScheduleID != 7 {
		t.Fatalf("cards = %+v, want schedules 8 then 7", v.Cards)
	}
	if v.Title != "Tuesday Club" {
		t.Errorf("Title = %q", v.Title)
	}
	if v.Subtitle != "Showing December 2025 • Group #2" {
		t.Errorf("Subtitle = %q", v.Subtitle)
	}
	if v.Alert != nil || v.Empty != "" {
		t.Errorf("unexpected alert %+v / empty %q", v.Alert, v.Empty)
	}
}

func TestController_LoadEmptyMonth(t *testing.T) {
	m := newMockAPI()
	m.schedules = nil
	c := NewController(m, State{Month: december2025}, Options{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := c.Snapshot()
	if v.Empty != "No schedules found for December 2025." {
		t.Errorf("Empty = %q", v.Empty)
	}
	if v.Title != "Schedules" || v.Subtitle != "Showing December 2025" {
		t.Errorf("Title/Subtitle = %q / %q", v.Title, v.Subtitle)
	}
}

func TestController_LoadFailure(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)

	m.monthErr = &api.NetworkError{Op: "GetSchedulesForMonth", Err: errors.New("connection refused")}
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	v := c.Snapshot()
	if len(v.Cards) != 0 {
		t.Errorf("grid should be empty, got %d cards", len(v.Cards))
	}
	if v.Alert == nil || v.Alert.Message != "Failed to fetch schedules: connection refused" {
		t.Errorf("alert = %+v", v.Alert)
	}
	if v.Empty != "" {
		t.Errorf("empty message shown next to the error: %q", v.Empty)
	}
}

func TestController_ToggleReconciles(t *testing.T) {
	m := newMockAPI()
	obs := &mockObserver{}
	c := loadedController(t, m, obs)

	res, err := c.ToggleAttendance(context.Background(), 7, 11, false)
	if err != nil {
		t.Fatalf("ToggleAttendance: %v", err)
	}
	if res.Phase != Reconciled || res.Checked {
		t.Errorf("result = %+v, want reconciled and unchecked", res)
	}
	card := string(res.Card)
	if !strings.Contains(card, "0/2 joined") {
		t.Errorf("card not refreshed:\n%s", card)
	}
	if strings.Contains(card, "Refund: 0") {
		t.Errorf("card still shows the old refund:\n%s", card)
	}
	if strings.Contains(card, " disabled") {
		t.Error("switch left disabled after reconcile")
	}
	ctl := c.Control(11)
	if ctl.Phase != Reconciled || ctl.Checked || ctl.Disabled {
		t.Errorf("control = %+v", ctl)
	}
	if m.directCalls != 1 {
		t.Errorf("direct fetches = %d, want 1", m.directCalls)
	}
	if res.Alert != nil {
		t.Errorf("unexpected alert %+v", res.Alert)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "reconciled" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestController_ToggleRollsBackOnServerError(t *testing.T) {
	m := newMockAPI()
	obs := &mockObserver{}
	c := loadedController(t, m, obs)
	before, _ := c.Card(7)

	m.patchErr = &api.RequestError{StatusCode: 500, Status: "Internal Server Error", Body: "boom"}
	res, err := c.ToggleAttendance(context.Background(), 7, 11, false)
	if err == nil {
		t.Fatal("expected the PATCH error")
	}
	if res.Phase != RolledBack || !res.Checked {
		t.Errorf("result = %+v, want rolled back and still checked", res)
	}
	if res.Card != before {
		t.Errorf("card changed after rollback:\nbefore %s\nafter  %s", before, res.Card)
	}
	want := "Failed to update attendance #11: 500 Internal Server Error - boom"
	if res.Alert == nil || res.Alert.Message != want || res.Alert.Kind != AlertDanger {
		t.Errorf("alert = %+v, want %q", res.Alert, want)
	}
	ctl := c.Control(11)
	if ctl.Phase != RolledBack || !ctl.Checked || ctl.Disabled {
		t.Errorf("control = %+v", ctl)
	}
	if m.directCalls != 0 {
		t.Errorf("rollback should not refresh, got %d direct fetches", m.directCalls)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "rolled_back" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestController_TogglePendingAndBusy(t *testing.T) {
	m := newMockAPI()
	m.blockID = 11
	m.block = make(chan struct{})
	m.started = make(chan struct{})
	obs := &mockObserver{}
	c := loadedController(t, m, obs)

	done := make(chan ToggleResult)
	go func() {
		res, _ := c.ToggleAttendance(context.Background(), 7, 11, false)
		done <- res
	}()
	<-m.started

	ctl := c.Control(11)
	if ctl.Phase != Pending || ctl.Checked || !ctl.Disabled {
		t.Errorf("pending control = %+v, want pending, optimistic unchecked, disabled", ctl)
	}
	card, _ := c.Card(7)
	if !strings.Contains(string(card), "0/2 joined") || strings.Count(string(card), " disabled") != 1 {
		t.Errorf("pending card not applied optimistically:\n%s", card)
	}

	if _, err := c.ToggleAttendance(context.Background(), 7, 11, true); !errors.Is(err, ErrControlBusy) {
		t.Errorf("second toggle err = %v, want ErrControlBusy", err)
	}

	other, err := c.ToggleAttendance(context.Background(), 7, 12, true)
	if err != nil || other.Phase != Reconciled || !other.Checked {
		t.Errorf("independent toggle = %+v, %v", other, err)
	}
	if got := c.Control(11); got.Phase != Pending || got.Checked {
		t.Errorf("pending control disturbed by a neighbour: %+v", got)
	}

	close(m.block)
	select {
	case res := <-done:
		if res.Phase != Reconciled || res.Checked {
			t.Errorf("blocked toggle = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked toggle never finished")
	}
	card, _ = c.Card(7)
	if !strings.Contains(string(card), "1/2 joined") || strings.Contains(string(card), " disabled") {
		t.Errorf("final card wrong:\n%s", card)
	}
	if len(m.patchCalls) != 2 {
		t.Errorf("PATCH calls = %v, want 2", m.patchCalls)
	}
}

func TestController_ToggleUnknownTargets(t *testing.T) {
	c := loadedController(t, newMockAPI(), nil)
	if _, err := c.ToggleAttendance(context.Background(), 99, 11, false); !errors.Is(err, ErrUnknownSchedule) {
		t.Errorf("unknown schedule err = %v", err)
	}
	if _, err := c.ToggleAttendance(context.Background(), 7, 21, false); !errors.Is(err, ErrUnknownAttendance) {
		t.Errorf("foreign attendance err = %v", err)
	}
}

func TestController_RefreshFallsBackToMonthList(t *testing.T) {
	m := newMockAPI()
	obs := &mockObserver{}
	c := loadedController(t, m, obs)
	loads := len(m.monthCalls)

	m.directErr = &api.RequestError{StatusCode: 404, Status: "Not Found"}
	if err := c.RefreshScheduleCard(context.Background(), 7); err != nil {
		t.Fatalf("RefreshScheduleCard: %v", err)
	}
	if len(m.monthCalls) != loads+1 {
		t.Errorf("month list calls = %d, want %d", len(m.monthCalls), loads+1)
	}
	if obs.fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", obs.fallbacks)
	}
	if c.Snapshot().Alert != nil {
		t.Error("successful fallback raised an alert")
	}
}

func TestController_RefreshNotFoundKeepsCard(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)
	before, _ := c.Card(7)

	m.removeSchedule(7)
	err := c.RefreshScheduleCard(context.Background(), 7)
	var nf *projections.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	after, ok := c.Card(7)
	if !ok || after != before {
		t.Error("card should stay as it was")
	}
	if a := c.Snapshot().Alert; a == nil || a.Message != "Schedule #7 not found after refresh." {
		t.Errorf("alert = %+v", a)
	}
}

func TestController_RefreshFailureDoesNotRollBack(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)

	m.directErr = &api.NetworkError{Op: "GetScheduleByID", Err: errors.New("timeout")}
	m.monthErr = &api.NetworkError{Op: "GetSchedulesForMonth", Err: errors.New("timeout")}
	res, err := c.ToggleAttendance(context.Background(), 7, 11, false)
	if err != nil {
		t.Fatalf("ToggleAttendance: %v", err)
	}
	if res.Phase != Reconciled || res.Checked {
		t.Errorf("result = %+v, want reconciled and unchecked", res)
	}
	if res.Alert == nil || res.Alert.Message != "Failed to refresh schedule #7: timeout" {
		t.Errorf("alert = %+v", res.Alert)
	}
}

func TestController_RefreshOffGridReloads(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)
	loads := len(m.monthCalls)

	if err := c.RefreshScheduleCard(context.Background(), 99); err != nil {
		t.Fatalf("RefreshScheduleCard: %v", err)
	}
	if len(m.monthCalls) != loads+1 || m.directCalls != 0 {
		t.Errorf("month calls %d direct %d; want a full reload only", len(m.monthCalls)-loads, m.directCalls)
	}
}

func TestController_MonthNavigation(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)

	q, err := c.NextMonth(context.Background())
	if err != nil {
		t.Fatalf("NextMonth: %v", err)
	}
	if got := q.Encode(); got != "groupId=2&month=1&year=2026" {
		t.Errorf("query = %q", got)
	}
	if got := m.monthCalls[len(m.monthCalls)-1]; got != (calendar.YearMonth{Year: 2026, Month: 1}) {
		t.Errorf("fetched %v, want 2026-01", got)
	}
	if v := c.Snapshot(); len(v.Cards) != 0 || v.Empty != "No schedules found for January 2026." {
		t.Errorf("January view = %d cards, empty %q", len(v.Cards), v.Empty)
	}

	if _, err := c.PrevMonth(context.Background()); err != nil {
		t.Fatalf("PrevMonth: %v", err)
	}
	q, _ = c.PrevMonth(context.Background())
	if got := q.Encode(); got != "groupId=2&month=11&year=2025" {
		t.Errorf("query = %q", got)
	}

	merged := c.MergeQuery(map[string][]string{"api": {"http://127.0.0.1:5000/api"}, "groupName": {"Tuesday Club"}, "month": {"4"}})
	if merged.Get("api") != "http://127.0.0.1:5000/api" || merged.Get("groupName") != "Tuesday Club" || merged.Get("month") != "11" {
		t.Errorf("merged = %v", merged)
	}
}

func TestController_SetMonthReturnsQueryOnFailure(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)
	m.monthErr = errors.New("down")

	q, err := c.SetMonth(context.Background(), calendar.YearMonth{Year: 2024, Month: 2})
	if err == nil {
		t.Fatal("expected an error")
	}
	if q.Get("year") != "2024" || q.Get("month") != "2" {
		t.Errorf("query = %v", q)
	}
}

func TestController_DeleteFlow(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)

	conf, err := c.RequestDelete(7)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if conf.Text != "Are you sure you want to delete schedule #7 on Sat, 20/12/2025 14:48?" {
		t.Errorf("Text = %q", conf.Text)
	}
	if len(m.deleteCalls) != 0 {
		t.Fatal("requesting a delete must not delete")
	}

	if err := c.ConfirmDelete(context.Background(), "not-a-nonce"); !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("bad nonce err = %v", err)
	}
	if err := c.ConfirmDelete(context.Background(), conf.Nonce); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if len(m.deleteCalls) != 1 || m.deleteCalls[0] != 7 {
		t.Errorf("deleteCalls = %v", m.deleteCalls)
	}
	v := c.Snapshot()
	if len(v.Cards) != 1 || v.Cards[0].ScheduleID != 8 {
		t.Errorf("cards after delete = %+v", v.Cards)
	}
	if v.Alert == nil || v.Alert.Kind != AlertSuccess || v.Alert.Message != "Schedule #7 deleted successfully." {
		t.Errorf("alert = %+v", v.Alert)
	}

	if err := c.ConfirmDelete(context.Background(), conf.Nonce); !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("reused nonce err = %v", err)
	}
}

func TestController_DeleteConfirmationExpires(t *testing.T) {
	m := newMockAPI()
	now := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	c := NewController(m, State{GroupID: 2, Month: december2025}, Options{Now: func() time.Time { return now }})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	conf, err := c.RequestDelete(8)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	now = now.Add(ConfirmationTTL + time.Second)
	if err := c.ConfirmDelete(context.Background(), conf.Nonce); !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("expired nonce err = %v", err)
	}
	if len(m.deleteCalls) != 0 {
		t.Error("expired confirmation deleted the schedule")
	}
}

func TestController_DeleteFailureChangesNothing(t *testing.T) {
	m := newMockAPI()
	c := loadedController(t, m, nil)
	m.deleteErr = &api.RequestError{StatusCode: 403, Status: "Forbidden"}

	conf, _ := c.RequestDelete(7)
	if err := c.ConfirmDelete(context.Background(), conf.Nonce); err == nil {
		t.Fatal("expected the delete error")
	}
	v := c.Snapshot()
	if len(v.Cards) != 2 {
		t.Errorf("cards = %d, want 2", len(v.Cards))
	}
	if v.Alert == nil || v.Alert.Message != "Delete failed: 403 Forbidden" {
		t.Errorf("alert = %+v", v.Alert)
	}
}

func TestController_RequestDeleteUnknown(t *testing.T) {
	c := loadedController(t, newMockAPI(), nil)
	if _, err := c.RequestDelete(42); !errors.Is(err, ErrUnknownSchedule) {
		t.Errorf("err = %v", err)
	}
}

func TestController_ReadOnly(t *testing.T) {
	c := loadedController(t, newMockAPI(), nil)
	c.SetReadOnly(true)

	card, _ := c.Card(7)
	if strings.Contains(string(card), "btn-delete-schedule") {
		t.Error("read-only card shows delete")
	}
	if !c.Control(11).Disabled {
		t.Error("read-only switch should be disabled")
	}
	if !c.Snapshot().ReadOnly {
		t.Error("snapshot should report read-only")
	}

	c.SetReadOnly(false)
	card, _ = c.Card(7)
	if !strings.Contains(string(card), "btn-delete-schedule") {
		t.Error("delete button missing after unlocking")
	}
}

func TestController_StateIsACopy(t *testing.T) {
	c := loadedController(t, newMockAPI(), nil)
	st := c.State()
	st.Schedules[0].Attendances[0].Joined = false
	if c.State().Schedules[0].Attendances[0].Joined != true {
		t.Error("mutating State() leaked into the controller")
	}
}
