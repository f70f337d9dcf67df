package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/pluqqy/pdfdeck/pkg/render"
)

// Scale limits
const (
	MinScale     = 0.5
	MaxScale     = 3.0
	DefaultScale = 1.0
)

// Session is the per-tab record of a document
type Session struct {
	TabID       string
	FileID      string
	Document    render.Document
	PageCount   int
	CurrentPage int
	Scale       float64
	Filename    string
	// Revision counts the service-side changes applied through this session.
	// A loaded Document belongs to the revision it was fetched for.
	Revision uint64
}

// Ticket captures a tab's epoch when an operation starts. It stays valid
// until the tab is deactivated or closed.
type Ticket struct {
	TabID string
	Epoch uint64
}

type tab struct {
	session Session
	epoch   uint64
	live    []io.Closer
}

// Snapshot is a consistent copy of the registry for projection
type Snapshot struct {
	Sessions []Session
	ActiveID string
}

// Active returns the active session, if any
func (s Snapshot) Active() (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.TabID == s.ActiveID {
			return sess, true
		}
	}
	return Session{}, false
}

// Registry manages the open tabs and the active-tab pointer
type Registry struct {
	mu       sync.RWMutex
	tabs     map[string]*tab
	order    []string
	active   string
	counter  int
	onChange func()
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tabs: make(map[string]*tab),
	}
}

// OnChange registers fn to run after every state change. fn runs without
// the registry lock held and must not block.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Registry) changed() {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Create adds a session for fileID and returns its tab id. The new tab is
// not activated.
func (r *Registry) Create(fileID string, pageCount int, filename string) string {
	r.mu.Lock()
	tabID := fmt.Sprintf("tab_%d", r.counter)
	r.counter++
	r.tabs[tabID] = &tab{
		session: Session{
			TabID:       tabID,
			FileID:      fileID,
			PageCount:   max(pageCount, 1),
			CurrentPage: 1,
			Scale:       DefaultScale,
			Filename:    filename,
		},
	}
	r.order = append(r.order, tabID)
	r.mu.Unlock()

	r.changed()
	return tabID
}

// Activate makes tabID the active tab. It returns false, doing nothing, when
// tabID is unknown or already active.
func (r *Registry) Activate(tabID string) bool {
	r.mu.Lock()
	if _, ok := r.tabs[tabID]; !ok || r.active == tabID {
		r.mu.Unlock()
		return false
	}
	released := r.deactivateLocked()
	r.active = tabID
	r.mu.Unlock()

	closeAll(released)
	r.changed()
	return true
}

// deactivateLocked bumps the active tab's epoch and returns its live
// resources for closing
func (r *Registry) deactivateLocked() []io.Closer {
	t, ok := r.tabs[r.active]
	r.active = ""
	if !ok {
		return nil
	}
	t.epoch++
	released := t.live
	t.live = nil
	return released
}

// Close removes tabID. When it was the active tab the first remaining tab
// by insertion order becomes active and its id is returned.
func (r *Registry) Close(tabID string) (string, error) {
	r.mu.Lock()
	t, ok := r.tabs[tabID]
	if !ok {
		r.mu.Unlock()
		return "", ErrUnknownTab
	}
	if len(r.tabs) <= 1 {
		r.mu.Unlock()
		return "", &LastTabError{TabID: tabID}
	}

	var released []io.Closer
	wasActive := r.active == tabID
	if wasActive {
		released = r.deactivateLocked()
	} else {
		t.epoch++
		released = t.live
	}
	delete(r.tabs, tabID)
	for i, id := range r.order {
		if id == tabID {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}

	next := ""
	if wasActive && len(r.order) > 0 {
		next = r.order[0]
		r.active = next
	}
	r.mu.Unlock()

	closeAll(released)
	r.changed()
	return next, nil
}

// Get returns a copy of the session for tabID
func (r *Registry) Get(tabID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[tabID]
	if !ok {
		return Session{}, false
	}
	return t.session, true
}

// ActiveID returns the active tab id, or "" when there is none
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Active returns a copy of the active session
func (r *Registry) Active() (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[r.active]
	if !ok {
		return Session{}, false
	}
	return t.session, true
}

// count returns the number of open tabs
func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// epochOf returns the current epoch of tabID
func (r *Registry) epochOf(tabID string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tabs[tabID]; ok {
		return t.epoch
	}
	return 0
}

// Begin starts an operation on tabID, which must exist and be active
func (r *Registry) Begin(tabID string) (Ticket, Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[tabID]
	if !ok {
		return Ticket{}, Session{}, ErrUnknownTab
	}
	if r.active != tabID {
		return Ticket{}, Session{}, ErrInactiveTab
	}
	return Ticket{TabID: tabID, Epoch: t.epoch}, t.session, nil
}

func (r *Registry) validLocked(ticket Ticket) (*tab, bool) {
	t, ok := r.tabs[ticket.TabID]
	if !ok || r.active != ticket.TabID || t.epoch != ticket.Epoch {
		return nil, false
	}
	return t, true
}

// Valid reports whether ticket's tab is still active in the same epoch
func (r *Registry) Valid(ticket Ticket) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.validLocked(ticket)
	return ok
}

// Commit applies fn to the session when ticket is still valid. Page and
// scale invariants are restored after fn returns.
func (r *Registry) Commit(ticket Ticket, fn func(s *Session)) error {
	r.mu.Lock()
	t, ok := r.validLocked(ticket)
	if !ok {
		r.mu.Unlock()
		return &RaceAbortError{Op: "commit", TabID: ticket.TabID}
	}
	fn(&t.session)
	normalize(&t.session)
	r.mu.Unlock()

	r.changed()
	return nil
}

// Do runs fn under the registry lock when ticket is still valid, without a
// change notification. fn must not call back into the registry.
func (r *Registry) Do(ticket Ticket, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.validLocked(ticket); !ok {
		return false
	}
	fn()
	return true
}

// Attach hands c to ticket's tab; it is closed when the tab is deactivated
// or closed. A stale ticket closes c right away.
func (r *Registry) Attach(ticket Ticket, c io.Closer) error {
	r.mu.Lock()
	t, ok := r.validLocked(ticket)
	if !ok {
		r.mu.Unlock()
		_ = c.Close()
		return &RaceAbortError{Op: "attach", TabID: ticket.TabID}
	}
	t.live = append(t.live, c)
	r.mu.Unlock()
	return nil
}

// Select moves the current page of the active tab tabID
func (r *Registry) Select(tabID string, page int) bool {
	r.mu.Lock()
	t, ok := r.tabs[tabID]
	if !ok || r.active != tabID || page < 1 || page > t.session.PageCount || page == t.session.CurrentPage {
		r.mu.Unlock()
		return false
	}
	t.session.CurrentPage = page
	r.mu.Unlock()

	r.changed()
	return true
}

// SetCurrentPage moves the current page if ticket is still valid and page is
// in range and different
func (r *Registry) SetCurrentPage(ticket Ticket, page int) bool {
	r.mu.Lock()
	t, ok := r.validLocked(ticket)
	if !ok || page < 1 || page > t.session.PageCount || page == t.session.CurrentPage {
		r.mu.Unlock()
		return false
	}
	t.session.CurrentPage = page
	r.mu.Unlock()

	r.changed()
	return true
}

// PageState returns current page and page count for ticket's tab
func (r *Registry) PageState(ticket Ticket) (int, int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.validLocked(ticket)
	if !ok {
		return 0, 0, false
	}
	return t.session.CurrentPage, t.session.PageCount, true
}

// SetScale stores a clamped scale for tabID and returns it
func (r *Registry) SetScale(tabID string, scale float64) (float64, bool) {
	r.mu.Lock()
	t, ok := r.tabs[tabID]
	if !ok {
		r.mu.Unlock()
		return 0, false
	}
	t.session.Scale = ClampScale(scale)
	scale = t.session.Scale
	r.mu.Unlock()

	r.changed()
	return scale, true
}

// Snapshot copies every session in tab order
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Sessions: make([]Session, 0, len(r.order)),
		ActiveID: r.active,
	}
	for _, id := range r.order {
		snap.Sessions = append(snap.Sessions, r.tabs[id].session)
	}
	return snap
}

// ClampScale limits scale to [MinScale, MaxScale]
func ClampScale(scale float64) float64 {
	return max(MinScale, min(scale, MaxScale))
}

func normalize(s *Session) {
	s.PageCount = max(s.PageCount, 1)
	s.CurrentPage = max(1, min(s.CurrentPage, s.PageCount))
	s.Scale = ClampScale(s.Scale)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
