// Package schedulesview owns the per-session view of a month of schedules:
// the grid of cards, the attendance switches with their optimistic updates,
// month navigation and the two-step delete.
package schedulesview

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"feeminton/internal/application/projections"
	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// ConfirmationTTL bounds how long a delete confirmation stays valid.
const ConfirmationTTL = 5 * time.Minute

// Alert kinds.
const (
	AlertDanger  = "danger"
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertInfo    = "info"
)

// Controller errors
var (
	ErrControlBusy          = errors.New("attendance update already in progress")
	ErrUnknownAttendance    = errors.New("attendance is not on this schedule")
	ErrUnknownSchedule      = errors.New("schedule is not on the current grid")
	ErrConfirmationRequired = errors.New("delete must be confirmed first")
)

// API is the subset of the REST client the controller calls.
type API interface {
	projections.ScheduleSource
	PatchAttendance(ctx context.Context, id int, joined bool) (attendance.Attendance, error)
	DeleteSchedule(ctx context.Context, id int) error
}

// Observer is told about toggle outcomes and refresh fallbacks. Optional.
type Observer interface {
	ToggleOutcome(outcome string)
	RefreshFallback()
}

// State is the explicit view state a controller starts from.
type State struct {
	GroupID   int // 0 means every group
	GroupName string
	Month     calendar.YearMonth
	Schedules []schedule.Schedule
}

// Alert is the single dismissible banner of the page.
type Alert struct {
	Kind    string
	Message string
}

// Options configure a controller.
type Options struct {
	Link     func(href string) string
	Observer Observer
	ReadOnly bool
	Now      func() time.Time
}

// ControlView is the visible state of one attendance switch.
type ControlView struct {
	AttendanceID int
	ScheduleID   int
	Phase        Phase
	Checked      bool
	Disabled     bool
}

// Card is one rendered schedule card.
type Card struct {
	ScheduleID int
	HTML       template.HTML
}

// View is a copy of everything a page template needs.
type View struct {
	GroupID   int
	GroupName string
	Month     calendar.YearMonth
	Title     string
	Subtitle  string
	Cards     []Card
	Empty     string
	Alert     *Alert
	Loaded    bool
	ReadOnly  bool
}

// ToggleResult reports a finished toggle to the caller.
type ToggleResult struct {
	Phase   Phase
	Checked bool
	Card    template.HTML
	Alert   *Alert
}

// Confirmation is a one-shot delete confirmation.
type Confirmation struct {
	Nonce      string
	ScheduleID int
	Text       string
	ExpiresAt  time.Time
}

type control struct {
	scheduleID int
	phase      Phase
	optimistic bool
}

// Controller holds one browser session's schedule grid. Network calls run
// without the lock, so switches on different rows update independently.
type Controller struct {
	mu       sync.Mutex
	api      API
	opts     Options
	state    State
	cards    map[int]template.HTML
	controls map[int]*control // by attendance ID
	deletes  map[string]Confirmation
	alert    *Alert
	loaded   bool
	gen      int
}

// NewController creates a controller around an explicit state.
// PRE: api is non-nil; state.Month is valid
// POST: Cards are rendered for any schedules already in state
func NewController(api API, state State, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		api:      api,
		opts:     opts,
		state:    state,
		cards:    make(map[int]template.HTML),
		controls: make(map[int]*control),
		deletes:  make(map[string]Confirmation),
	}
	c.state.Schedules = cloneAll(state.Schedules)
	c.loaded = len(state.Schedules) > 0
	c.renderAllLocked()
	return c
}

// Load fetches the month and re-renders the grid. A failure empties the
// grid and raises an alert.
// PRE: none
// POST: The grid shows exactly the schedules of the current month
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.alert = nil
	query := projections.MonthSchedulesQuery{Month: c.state.Month, GroupID: c.state.GroupID}
	c.mu.Unlock()

	res, err := projections.QueryMonthSchedules(ctx, query, projections.MonthSchedulesDeps{Schedules: c.api})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.loaded = true
	if err != nil {
		slog.Error("schedules_view_event", "event", "load_failed", "month", query.Month.Key(), "group_id", query.GroupID, "error", err)
		c.state.Schedules = nil
		c.cards = make(map[int]template.HTML)
		c.alert = &Alert{Kind: AlertDanger, Message: "Failed to fetch schedules: " + err.Error()}
		return err
	}
	c.state.Schedules = res.Schedules
	c.pruneControlsLocked()
	c.renderAllLocked()
	return nil
}

// PrevMonth steps one calendar month back and reloads.
func (c *Controller) PrevMonth(ctx context.Context) (url.Values, error) {
	c.mu.Lock()
	ym := c.state.Month.Prev()
	c.mu.Unlock()
	return c.SetMonth(ctx, ym)
}

// NextMonth steps one calendar month forward and reloads.
func (c *Controller) NextMonth(ctx context.Context) (url.Values, error) {
	c.mu.Lock()
	ym := c.state.Month.Next()
	c.mu.Unlock()
	return c.SetMonth(ctx, ym)
}

// SetMonth jumps to ym and reloads. The returned query (groupId, year,
// month) replaces the page URL's query without a new history entry; it is
// returned even when the reload fails.
// PRE: ym is valid
// POST: State month is ym
func (c *Controller) SetMonth(ctx context.Context, ym calendar.YearMonth) (url.Values, error) {
	c.mu.Lock()
	c.state.Month = ym
	c.mu.Unlock()
	err := c.Load(ctx)
	return c.Query(), err
}

// Query returns the URL parameters that describe the current view.
func (c *Controller) Query() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := url.Values{}
	if c.state.GroupID > 0 {
		q.Set("groupId", strconv.Itoa(c.state.GroupID))
	}
	q.Set("year", strconv.Itoa(c.state.Month.Year))
	q.Set("month", strconv.Itoa(c.state.Month.Month))
	return q
}

// MergeQuery overlays Query() onto the page's current parameters, keeping
// the others (api, groupName) intact.
func (c *Controller) MergeQuery(current url.Values) url.Values {
	out := url.Values{}
	for k, v := range current {
		out[k] = append([]string(nil), v...)
	}
	out.Del("groupId")
	for k, v := range c.Query() {
		out[k] = v
	}
	return out
}

// ToggleAttendance sets one attendee's joined flag with an optimistic update.
// PRE: the schedule is on the grid and carries attendanceID
// POST: Phase is Reconciled (switch shows the server value, card refreshed)
// or RolledBack (switch, icon and badge as before, alert set)
// INVARIANT: a switch that is Pending refuses a second toggle
func (c *Controller) ToggleAttendance(ctx context.Context, scheduleID, attendanceID int, joined bool) (ToggleResult, error) {
	c.mu.Lock()
	idx := c.indexLocked(scheduleID)
	if idx < 0 {
		c.mu.Unlock()
		return ToggleResult{}, ErrUnknownSchedule
	}
	if _, ok := c.state.Schedules[idx].Attendance(attendanceID); !ok {
		c.mu.Unlock()
		return ToggleResult{}, ErrUnknownAttendance
	}
	ctl, ok := c.controls[attendanceID]
	if ok && ctl.phase == Pending {
		c.mu.Unlock()
		c.observe("busy")
		return ToggleResult{}, ErrControlBusy
	}
	ctl = &control{scheduleID: scheduleID, phase: Pending, optimistic: joined}
	c.controls[attendanceID] = ctl
	c.mu.Unlock()

	update := OptimisticUpdate[attendance.Attendance]{
		Apply: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.renderLocked(scheduleID)
		},
		Send: func(ctx context.Context) (attendance.Attendance, error) {
			return c.api.PatchAttendance(ctx, attendanceID, joined)
		},
		Reconcile: func(ctx context.Context, updated attendance.Attendance) {
			c.mu.Lock()
			if i := c.indexLocked(scheduleID); i >= 0 {
				c.state.Schedules[i].SetJoined(attendanceID, updated.Joined)
			}
			ctl.optimistic = updated.Joined
			c.mu.Unlock()
			// A refresh failure raises its own alert; the server already
			// accepted the change, so the toggle still counts as reconciled.
			_ = c.RefreshScheduleCard(ctx, scheduleID)
		},
		Rollback: func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.alert = &Alert{Kind: AlertDanger, Message: fmt.Sprintf("Failed to update attendance #%d: %s", attendanceID, err.Error())}
		},
		OnPhase: func(p Phase) {
			c.mu.Lock()
			defer c.mu.Unlock()
			ctl.phase = p
			if p != Pending {
				c.renderLocked(scheduleID)
			}
		},
	}

	phase, err := update.Run(ctx)
	c.observe(phase.String())
	slog.Info("attendance_event", "event", "toggled", "attendance_id", attendanceID, "schedule_id", scheduleID, "joined", joined, "phase", phase.String())
	if err != nil {
		slog.Error("attendance_event", "event", "toggle_failed", "attendance_id", attendanceID, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	view := c.controlViewLocked(attendanceID)
	card := c.cards[scheduleID]
	return ToggleResult{Phase: phase, Checked: view.Checked, Card: card, Alert: copyAlert(c.alert)}, err
}

// RefreshScheduleCard re-reads one schedule, directly or through the month
// list, and re-renders its card. A schedule missing from the grid triggers
// a full reload. Failures keep the old card and raise an alert.
// PRE: scheduleID > 0
// POST: The card reflects the server, or an alert explains why not
func (c *Controller) RefreshScheduleCard(ctx context.Context, scheduleID int) error {
	c.mu.Lock()
	onGrid := c.indexLocked(scheduleID) >= 0
	query := projections.ResolveScheduleQuery{ID: scheduleID, Month: c.state.Month, GroupID: c.state.GroupID}
	c.mu.Unlock()

	if !onGrid {
		return c.Load(ctx)
	}

	res, err := projections.QueryResolveSchedule(ctx, query, projections.ResolveScheduleDeps{
		Schedules: c.api,
		OnFallback: func(error) {
			if c.opts.Observer != nil {
				c.opts.Observer.RefreshFallback()
			}
		},
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var nf *projections.NotFoundError
		msg := err.Error()
		if !errors.As(err, &nf) {
			msg = fmt.Sprintf("Failed to refresh schedule #%d: %s", scheduleID, msg)
		}
		slog.Warn("schedules_view_event", "event", "refresh_failed", "schedule_id", scheduleID, "error", err)
		c.alert = &Alert{Kind: AlertDanger, Message: msg}
		return err
	}
	if i := c.indexLocked(scheduleID); i >= 0 {
		c.state.Schedules[i] = res.Schedule.Clone()
		c.renderLocked(scheduleID)
	}
	slog.Debug("schedules_view_event", "event", "card_refreshed", "schedule_id", scheduleID, "source", string(res.Source))
	return nil
}

// RequestDelete issues a one-shot confirmation for deleting a schedule.
// Nothing is deleted until ConfirmDelete is called with its nonce.
// PRE: the schedule is on the grid
// POST: Returns the confirmation text and nonce
func (c *Controller) RequestDelete(scheduleID int) (Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(scheduleID)
	if idx < 0 {
		return Confirmation{}, ErrUnknownSchedule
	}
	now := c.opts.Now()
	for nonce, conf := range c.deletes {
		if now.After(conf.ExpiresAt) {
			delete(c.deletes, nonce)
		}
	}
	conf := Confirmation{
		Nonce:      uuid.NewString(),
		ScheduleID: scheduleID,
		Text:       fmt.Sprintf("Are you sure you want to delete schedule #%d on %s?", scheduleID, DateText(c.state.Schedules[idx])),
		ExpiresAt:  now.Add(ConfirmationTTL),
	}
	c.deletes[conf.Nonce] = conf
	return conf, nil
}

// ConfirmDelete deletes the schedule named by a confirmation and reloads the
// month. A failed delete raises an alert and changes nothing else.
// PRE: nonce came from RequestDelete and has not been used or expired
// POST: The nonce is spent whatever the outcome
func (c *Controller) ConfirmDelete(ctx context.Context, nonce string) error {
	c.mu.Lock()
	conf, ok := c.deletes[nonce]
	delete(c.deletes, nonce)
	now := c.opts.Now()
	c.mu.Unlock()
	if !ok || now.After(conf.ExpiresAt) {
		return ErrConfirmationRequired
	}

	if err := c.api.DeleteSchedule(ctx, conf.ScheduleID); err != nil {
		slog.Error("schedule_event", "event", "delete_failed", "schedule_id", conf.ScheduleID, "error", err)
		c.mu.Lock()
		c.alert = &Alert{Kind: AlertDanger, Message: "Delete failed: " + err.Error()}
		c.mu.Unlock()
		return err
	}
	slog.Info("schedule_event", "event", "deleted", "schedule_id", conf.ScheduleID)

	if err := c.Load(ctx); err != nil {
		return nil
	}
	c.mu.Lock()
	c.alert = &Alert{Kind: AlertSuccess, Message: fmt.Sprintf("Schedule #%d deleted successfully.", conf.ScheduleID)}
	c.mu.Unlock()
	return nil
}

// SetReadOnly switches editing off or on and re-renders the cards.
func (c *Controller) SetReadOnly(readOnly bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.ReadOnly == readOnly {
		return
	}
	c.opts.ReadOnly = readOnly
	c.renderAllLocked()
}

// SetAlert replaces the banner.
func (c *Controller) SetAlert(a *Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alert = copyAlert(a)
}

// ClearAlert dismisses the banner.
func (c *Controller) ClearAlert() {
	c.SetAlert(nil)
}

// Control returns the visible state of one switch.
func (c *Controller) Control(attendanceID int) ControlView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlViewLocked(attendanceID)
}

// Card returns the rendered card of a schedule on the grid.
func (c *Controller) Card(scheduleID int) (template.HTML, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[scheduleID]
	return card, ok
}

// State returns a deep copy of the view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Schedules = cloneAll(c.state.Schedules)
	return st
}

// Snapshot copies the view for a page template.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		GroupID:   c.state.GroupID,
		GroupName: c.state.GroupName,
		Month:     c.state.Month,
		Title:     "Schedules",
		Subtitle:  "Showing " + c.state.Month.Label(),
		Alert:     copyAlert(c.alert),
		Loaded:    c.loaded,
		ReadOnly:  c.opts.ReadOnly,
	}
	if c.state.GroupName != "" {
		v.Title = c.state.GroupName
	}
	if c.state.GroupID > 0 {
		v.Subtitle += " • Group #" + strconv.Itoa(c.state.GroupID)
	}
	for _, s := range c.state.Schedules {
		v.Cards = append(v.Cards, Card{ScheduleID: s.ID, HTML: c.cards[s.ID]})
	}
	if c.loaded && len(v.Cards) == 0 && (c.alert == nil || c.alert.Kind != AlertDanger) {
		v.Empty = "No schedules found for " + c.state.Month.Label() + "."
	}
	return v
}

func (c *Controller) observe(outcome string) {
	if c.opts.Observer != nil {
		c.opts.Observer.ToggleOutcome(outcome)
	}
}

func (c *Controller) indexLocked(scheduleID int) int {
	for i, s := range c.state.Schedules {
		if s.ID == scheduleID {
			return i
		}
	}
	return -1
}

// renderLocked re-renders one card, showing pending switches at their
// optimistic value and disabled.
func (c *Controller) renderLocked(scheduleID int) {
	idx := c.indexLocked(scheduleID)
	if idx < 0 {
		delete(c.cards, scheduleID)
		return
	}
	shown := c.state.Schedules[idx].Clone()
	disabled := make(map[int]bool)
	for id, ctl := range c.controls {
		if ctl.scheduleID != scheduleID || ctl.phase != Pending {
			continue
		}
		if shown.SetJoined(id, ctl.optimistic) {
			disabled[id] = true
		}
	}
	c.cards[scheduleID] = RenderCard(shown, CardOptions{
		GroupName: c.state.GroupName,
		Link:      c.opts.Link,
		Disabled:  disabled,
		ReadOnly:  c.opts.ReadOnly,
	})
}

func (c *Controller) renderAllLocked() {
	c.cards = make(map[int]template.HTML, len(c.state.Schedules))
	for _, s := range c.state.Schedules {
		c.renderLocked(s.ID)
	}
}

// pruneControlsLocked forgets settled switches; pending ones keep their
// entry so their answer still lands.
func (c *Controller) pruneControlsLocked() {
	for id, ctl := range c.controls {
		if ctl.phase != Pending {
			delete(c.controls, id)
		}
	}
}

func (c *Controller) controlViewLocked(attendanceID int) ControlView {
	view := ControlView{AttendanceID: attendanceID, Phase: Idle}
	ctl, tracked := c.controls[attendanceID]
	if tracked {
		view.ScheduleID = ctl.scheduleID
		view.Phase = ctl.phase
	}
	for _, s := range c.state.Schedules {
		if a, ok := s.Attendance(attendanceID); ok {
			view.ScheduleID = s.ID
			view.Checked = a.Joined
			break
		}
	}
	if tracked && ctl.phase == Pending {
		view.Checked = ctl.optimistic
		view.Disabled = true
	}
	if c.opts.ReadOnly {
		view.Disabled = true
	}
	return view
}

func cloneAll(list []schedule.Schedule) []schedule.Schedule {
	if list == nil {
		return nil
	}
	out := make([]schedule.Schedule, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out
}

func copyAlert(a *Alert) *Alert {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
