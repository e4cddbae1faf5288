package web

import (
	"sync"
	"time"

	"feeminton/internal/application/schedulesview"
	"feeminton/internal/domain/calendar"
)

// viewKey identifies one schedule grid: a browser session looking at one
// group and month through one API base.
type viewKey struct {
	session string
	base    string
	groupID int
	month   calendar.YearMonth
}

type viewEntry struct {
	ctrl     *schedulesview.Controller
	flash    *schedulesview.Alert // shown once by the next page load
	lastUsed time.Time
}

// ViewRegistry keeps the schedule controllers alive between requests.
// Entries idle for longer than ttl are dropped lazily.
type ViewRegistry struct {
	mu      sync.Mutex
	entries map[viewKey]*viewEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewViewRegistry creates an empty registry.
// PRE: ttl > 0
func NewViewRegistry(ttl time.Duration) *ViewRegistry {
	return &ViewRegistry{
		entries: make(map[viewKey]*viewEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Controller returns the controller for key, creating it with create when
// absent.
// PRE: create is non-nil
// POST: The entry is marked as used
func (vr *ViewRegistry) Controller(key viewKey, create func() *schedulesview.Controller) *schedulesview.Controller {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	now := vr.now()
	vr.evictLocked(now)

	e, ok := vr.entries[key]
	if !ok {
		e = &viewEntry{ctrl: create()}
		vr.entries[key] = e
	}
	e.lastUsed = now
	return e.ctrl
}

// Lookup returns an existing controller without creating one.
func (vr *ViewRegistry) Lookup(key viewKey) (*schedulesview.Controller, bool) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	e, ok := vr.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = vr.now()
	return e.ctrl, true
}

// SetFlash stores an alert for the next page load of key.
func (vr *ViewRegistry) SetFlash(key viewKey, a *schedulesview.Alert) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	if e, ok := vr.entries[key]; ok {
		e.flash = a
	}
}

// TakeFlash returns and clears the pending alert of key.
func (vr *ViewRegistry) TakeFlash(key viewKey) *schedulesview.Alert {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	e, ok := vr.entries[key]
	if !ok {
		return nil
	}
	a := e.flash
	e.flash = nil
	return a
}

// Len returns the number of live entries.
func (vr *ViewRegistry) Len() int {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return len(vr.entries)
}

// evictLocked drops idle entries. Caller holds mu.
func (vr *ViewRegistry) evictLocked(now time.Time) {
	for k, e := range vr.entries {
		if now.Sub(e.lastUsed) > vr.ttl {
			delete(vr.entries, k)
		}
	}
}
