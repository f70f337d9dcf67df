package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/tracker"
)

// VisibleMargin is the fraction of the viewport height cut from its top
// and bottom when deciding which page is visible
const VisibleMargin = 0.2

// Viewer is the Display for a terminal viewport. It owns the page buffer,
// runs the render pipeline into it and keeps a tracker for the current page.
type Viewer struct {
	registry *Registry
	pipeline *render.Pipeline
	buffer   *render.Buffer
	cfg      tracker.Config
	logger   *slog.Logger

	// gen increases with every Present so only the newest render draws
	gen atomic.Uint64

	mu      sync.Mutex
	ticket  Ticket
	job     *render.Job
	tracker *tracker.Tracker
	focus   int
	hasJump bool
}

// NewViewer creates a viewer drawing into buffer
func NewViewer(registry *Registry, pipeline *render.Pipeline, buffer *render.Buffer, cfg tracker.Config, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Viewer{
		registry: registry,
		pipeline: pipeline,
		buffer:   buffer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Buffer returns the page buffer
func (v *Viewer) Buffer() *render.Buffer {
	return v.buffer
}

type renderGuard struct {
	viewer *Viewer
	ticket Ticket
	gen    uint64
}

func (g renderGuard) Valid() bool {
	return g.viewer.gen.Load() == g.gen && g.viewer.registry.Valid(g.ticket)
}

func (g renderGuard) Apply(fn func()) bool {
	applied := false
	g.viewer.registry.Do(g.ticket, func() {
		if g.viewer.gen.Load() == g.gen {
			fn()
			applied = true
		}
	})
	return applied
}

// Present implements Display
func (v *Viewer) Present(ticket Ticket, doc render.Document, scale float64) {
	gen := v.gen.Add(1)
	v.mu.Lock()
	v.ticket = ticket
	v.closeTrackerLocked()
	if v.job != nil {
		v.job.Cancel()
		v.job = nil
	}
	v.mu.Unlock()

	guard := renderGuard{viewer: v, ticket: ticket, gen: gen}
	job := v.pipeline.Render(context.Background(), doc, scale, v.buffer, guard, func() {
		v.rebuildTracker(ticket, gen)
	})
	if err := v.registry.Attach(ticket, job); err != nil {
		v.logger.Debug("Render outlived its tab.", "tab", ticket.TabID)
	}
	v.logger.Debug("Presented document.", "tab", ticket.TabID, "pages", doc.PageCount(), "drawn", job.Rendered())
	v.mu.Lock()
	if v.gen.Load() == gen {
		v.job = job
	}
	v.mu.Unlock()

	if current, _, ok := v.registry.PageState(ticket); ok && current > 1 {
		v.Focus(ticket, current)
	}
}

// rebuildTracker replaces the tracker after the page surfaces changed
func (v *Viewer) rebuildTracker(ticket Ticket, gen uint64) {
	tr := tracker.New(v.cfg,
		func() (int, int, bool) { return v.registry.PageState(ticket) },
		func(page int) bool { return v.registry.SetCurrentPage(ticket, page) },
	)
	if err := v.registry.Attach(ticket, tr); err != nil {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ticket != ticket || v.gen.Load() != gen {
		_ = tr.Close()
		return
	}
	v.closeTrackerLocked()
	v.tracker = tr
}

func (v *Viewer) closeTrackerLocked() {
	if v.tracker != nil {
		_ = v.tracker.Close()
		v.tracker = nil
	}
}

// Focus implements Display
func (v *Viewer) Focus(ticket Ticket, page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ticket != ticket {
		return
	}
	v.focus = page
	v.hasJump = true
}

// Clear implements Display
func (v *Viewer) Clear() {
	v.gen.Add(1)
	v.mu.Lock()
	v.ticket = Ticket{}
	v.closeTrackerLocked()
	if v.job != nil {
		v.job.Cancel()
		v.job = nil
	}
	v.hasJump = false
	v.mu.Unlock()
	v.buffer.Reset()
}

// TakeJump returns the line offset of a page waiting to be brought into
// view, once. ok is false when nothing is pending or the page is not
// rendered yet.
func (v *Viewer) TakeJump() (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasJump {
		return 0, false
	}
	for _, f := range v.buffer.Layout() {
		if f.Page == v.focus {
			v.hasJump = false
			return f.Top, true
		}
	}
	return 0, false
}

// Scrolled reports the viewport position to the tracker
func (v *Viewer) Scrolled(offset, height int) {
	v.mu.Lock()
	tr := v.tracker
	v.mu.Unlock()
	if tr == nil || height <= 0 {
		return
	}

	frames := v.buffer.Layout()
	rects := make([]tracker.Rect, len(frames))
	for i, f := range frames {
		rects[i] = tracker.Rect{Page: f.Page, Top: f.Top, Height: f.Height}
	}
	tr.ObserveVisibility(tracker.Visibility(offset, height, VisibleMargin, rects))
	tr.ObserveScroll(float64(offset)+float64(height)/2, rects)
}

// FlushTracker applies pending tracker input now
func (v *Viewer) FlushTracker() {
	v.mu.Lock()
	tr := v.tracker
	v.mu.Unlock()
	if tr != nil {
		tr.Flush()
	}
}
