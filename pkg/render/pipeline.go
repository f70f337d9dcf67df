package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// ErrStale is returned when a render was abandoned because its tab is no
// longer active
var ErrStale = errors.New("render is stale")

// Guard tells a render whether its tab is still the active one. Apply runs
// fn atomically with that check.
type Guard interface {
	Valid() bool
	Apply(fn func()) bool
}

// GuardFunc adapts a plain predicate to Guard
type GuardFunc func() bool

// Valid implements Guard
func (f GuardFunc) Valid() bool { return f() }

// Apply implements Guard
func (f GuardFunc) Apply(fn func()) bool {
	if !f() {
		return false
	}
	fn()
	return true
}

// Options tune a Pipeline
type Options struct {
	// Pages rendered before Render returns
	InitialPages int
	// Pause before the remaining pages are rendered
	BackgroundDelay time.Duration
	// Widest page, in points at scale 1, drawn without shrinking. Zero disables.
	MaxWidth float64
}

// DefaultOptions returns the stock tuning
func DefaultOptions() Options {
	return Options{InitialPages: 3, BackgroundDelay: 100 * time.Millisecond}
}

// Pipeline renders documents page by page onto a Surface
type Pipeline struct {
	rasterizer Rasterizer
	opts       Options
	logger     *slog.Logger
}

// NewPipeline creates a pipeline; a nil logger discards output
func NewPipeline(r Rasterizer, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.InitialPages < 1 {
		opts.InitialPages = 1
	}
	return &Pipeline{rasterizer: r, opts: opts, logger: logger}
}

// EffectiveScale shrinks scale so that a page pageWidth points wide fits
// maxWidth. The logical scale chosen by the user is not changed.
func EffectiveScale(pageWidth, scale, maxWidth float64) float64 {
	if maxWidth <= 0 || pageWidth <= maxWidth {
		return scale
	}
	return maxWidth / pageWidth * scale
}

// Job is one render pass over a document
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	err      error
	rendered int
}

// Cancel stops the background pass; pages already appended stay
func (j *Job) Cancel() {
	j.cancel()
}

// Close implements io.Closer so a job can be handed over as a live resource
func (j *Job) Close() error {
	j.cancel()
	return nil
}

// Done is closed once the job has finished or given up
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns why it stopped
func (j *Job) Wait() error {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Rendered returns the number of pages appended so far
func (j *Job) Rendered() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rendered
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()
	j.cancel()
	close(j.done)
}

// Render resets surface and draws the first InitialPages pages before
// returning. The remaining pages are drawn on a goroutine after
// BackgroundDelay. Every page is checked against guard before it is drawn
// and again when it is appended. onPass, when set, runs after each pass
// that completes while the guard still holds.
func (p *Pipeline) Render(ctx context.Context, doc Document, scale float64, surface Surface, guard Guard, onPass func()) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{cancel: cancel, done: make(chan struct{})}

	if !guard.Apply(surface.Reset) {
		job.finish(ErrStale)
		return job
	}

	total := doc.PageCount()
	initial := min(p.opts.InitialPages, total)
	for page := 1; page <= initial; page++ {
		if err := p.renderPage(ctx, job, doc, page, scale, surface, guard); err != nil {
			p.stop(job, page, err)
			return job
		}
	}
	p.passDone(guard, onPass)

	if initial >= total {
		job.finish(nil)
		return job
	}

	go func() {
		timer := time.NewTimer(p.opts.BackgroundDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			job.finish(ctx.Err())
			return
		case <-timer.C:
		}

		for page := initial + 1; page <= total; page++ {
			if err := p.renderPage(ctx, job, doc, page, scale, surface, guard); err != nil {
				p.stop(job, page, err)
				return
			}
			runtime.Gosched()
		}
		p.passDone(guard, onPass)
		job.finish(nil)
	}()
	return job
}

func (p *Pipeline) renderPage(ctx context.Context, job *Job, doc Document, page int, scale float64, surface Surface, guard Guard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !guard.Valid() {
		return ErrStale
	}

	width, _, err := doc.PageSize(page)
	if err != nil {
		return fmt.Errorf("failed to read page %d: %w", page, err)
	}
	surf, err := p.rasterizer.Rasterize(ctx, doc, page, EffectiveScale(width, scale, p.opts.MaxWidth))
	if err != nil {
		return fmt.Errorf("failed to render page %d: %w", page, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !guard.Apply(func() { surface.Append(surf) }) {
		return ErrStale
	}
	job.mu.Lock()
	job.rendered++
	job.mu.Unlock()
	return nil
}

func (p *Pipeline) stop(job *Job, page int, err error) {
	if errors.Is(err, ErrStale) || errors.Is(err, context.Canceled) {
		p.logger.Debug("Render abandoned.", "page", page, "reason", err)
	} else {
		p.logger.Warn("Render failed.", "page", page, "error", err)
	}
	job.finish(err)
}

func (p *Pipeline) passDone(guard Guard, onPass func()) {
	if onPass != nil && guard.Valid() {
		onPass()
	}
}
