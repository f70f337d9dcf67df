package render

import (
	"strings"
	"sync"
)

// Surface receives rendered pages in page order
type Surface interface {
	Reset()
	Append(p PageSurface)
}

// Frame locates a page inside the joined buffer content
type Frame struct {
	Page   int
	Top    int
	Height int
}

// Buffer is the display surface for the active tab
type Buffer struct {
	mu       sync.RWMutex
	pages    []PageSurface
	gap      int
	version  uint64
	onChange func()
}

// NewBuffer creates a buffer separating pages by gap blank lines. onChange,
// when set, is called after every Reset and Append and must not block.
func NewBuffer(gap int, onChange func()) *Buffer {
	return &Buffer{gap: gap, onChange: onChange}
}

// Reset implements Surface
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.pages = nil
	b.version++
	b.mu.Unlock()
	b.changed()
}

// Append implements Surface
func (b *Buffer) Append(p PageSurface) {
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.version++
	b.mu.Unlock()
	b.changed()
}

func (b *Buffer) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// Pages returns a copy of the rendered pages
func (b *Buffer) Pages() []PageSurface {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PageSurface, len(b.pages))
	copy(out, b.pages)
	return out
}

// Len returns the number of rendered pages
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pages)
}

// Version increases on every change
func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Layout returns the vertical position of every page in Content
func (b *Buffer) Layout() []Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	frames := make([]Frame, 0, len(b.pages))
	top := 0
	for _, p := range b.pages {
		frames = append(frames, Frame{Page: p.Page, Top: top, Height: p.Height})
		top += p.Height + b.gap
	}
	return frames
}

// Content joins all page bodies top to bottom
func (b *Buffer) Content() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.pages) == 0 {
		return ""
	}
	sep := "\n" + strings.Repeat("\n", b.gap)
	bodies := make([]string, len(b.pages))
	for i, p := range b.pages {
		bodies[i] = p.Body
	}
	return strings.Join(bodies, sep)
}
