// Package tracker derives the current page from what is visible in the
// page viewport. Two inputs feed it, each debounced on its own: visibility
// ratios of the rendered pages and the scroll position of the viewport.
package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/pluqqy/pdfdeck/pkg/utils"
)

// Entry reports how much of one page is inside the observed band
type Entry struct {
	Page         int
	Ratio        float64
	Intersecting bool
}

// Rect is a page's vertical extent in viewport content coordinates
type Rect struct {
	Page   int
	Top    int
	Height int
}

// Center returns the vertical midpoint
func (r Rect) Center() float64 {
	return float64(r.Top) + float64(r.Height)/2
}

// Config holds the debounce for each input
type Config struct {
	VisibilityDebounce time.Duration
	ScrollDebounce     time.Duration
}

// DefaultConfig matches the stock view settings
func DefaultConfig() Config {
	return Config{
		VisibilityDebounce: 50 * time.Millisecond,
		ScrollDebounce:     100 * time.Millisecond,
	}
}

// StateFunc returns the tab's current page and page count, or ok=false when
// the tab is gone or inactive
type StateFunc func() (current, pageCount int, ok bool)

// CommitFunc stores a new current page; it returns false if the tab stopped
// being active in the meantime
type CommitFunc func(page int) bool

// PickVisible returns the intersecting page with the greatest ratio. A page
// only wins with a strictly greater ratio, so ties keep current.
func PickVisible(entries []Entry, current int) int {
	best := current
	maxRatio := 0.0
	for _, e := range entries {
		if e.Intersecting && e.Ratio > maxRatio && e.Page > 0 {
			maxRatio = e.Ratio
			best = e.Page
		}
	}
	if best != current {
		for _, e := range entries {
			if e.Page == current && e.Intersecting && e.Ratio == maxRatio {
				return current
			}
		}
	}
	return best
}

// PickClosest returns the page whose center is nearest center. An empty
// rects keeps current.
func PickClosest(center float64, rects []Rect, current int) int {
	best := current
	minDistance := math.Inf(1)
	for _, r := range rects {
		d := math.Abs(r.Center() - center)
		if d < minDistance && r.Page > 0 {
			minDistance = d
			best = r.Page
		}
	}
	return best
}

// Visibility computes intersection entries for a viewport. The observed band
// is the viewport with margin (a fraction of its height) cut from top and
// bottom.
func Visibility(offset, height int, margin float64, rects []Rect) []Entry {
	cut := float64(height) * margin
	top := float64(offset) + cut
	bottom := float64(offset+height) - cut

	entries := make([]Entry, 0, len(rects))
	for _, r := range rects {
		start := float64(r.Top)
		end := start + float64(r.Height)
		overlap := math.Min(end, bottom) - math.Max(start, top)
		e := Entry{Page: r.Page}
		if overlap > 0 && r.Height > 0 {
			e.Intersecting = true
			e.Ratio = overlap / float64(r.Height)
		}
		entries = append(entries, e)
	}
	return entries
}

// Tracker debounces both inputs and commits the resulting page
type Tracker struct {
	state  StateFunc
	commit CommitFunc

	visibility *utils.Debouncer
	scroll     *utils.Debouncer

	mu     sync.Mutex
	closed bool
}

// New creates a tracker for one tab
func New(cfg Config, state StateFunc, commit CommitFunc) *Tracker {
	return &Tracker{
		state:      state,
		commit:     commit,
		visibility: utils.NewDebouncer(cfg.VisibilityDebounce),
		scroll:     utils.NewDebouncer(cfg.ScrollDebounce),
	}
}

// ObserveVisibility feeds a batch of visibility entries
func (t *Tracker) ObserveVisibility(entries []Entry) {
	batch := append([]Entry(nil), entries...)
	t.visibility.Trigger(func() {
		t.apply(func(current int) int { return PickVisible(batch, current) })
	})
}

// ObserveScroll feeds the viewport center and the page layout
func (t *Tracker) ObserveScroll(center float64, rects []Rect) {
	layout := append([]Rect(nil), rects...)
	t.scroll.Trigger(func() {
		t.apply(func(current int) int { return PickClosest(center, layout, current) })
	})
}

// Flush runs any pending input now
func (t *Tracker) Flush() {
	t.visibility.Flush()
	t.scroll.Flush()
}

func (t *Tracker) apply(pick func(current int) int) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	current, pageCount, ok := t.state()
	if !ok {
		return
	}
	page := pick(current)
	if page == current || page < 1 || page > pageCount {
		return
	}
	t.commit(page)
}

// Close drops pending inputs; later observations are ignored
func (t *Tracker) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.visibility.Stop()
	t.scroll.Stop()
	return nil
}
