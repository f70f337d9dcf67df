// Package session keeps per-tab document sessions consistent with the
// remote document service. Every operation captures its tab's epoch when it
// starts and re-checks it before applying results, so a slow response that
// arrives after a tab switch changes nothing.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/pagerange"
	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/utils"
)

// MinMergeFiles is the fewest files a merge accepts
const MinMergeFiles = 2

// DefaultMergeFilename names standalone merges
const DefaultMergeFilename = "merged.pdf"

// DocumentService is the remote document service
type DocumentService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error)
	Fetch(ctx context.Context, fileID string) ([]byte, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Info(ctx context.Context, fileID string) (*models.DocumentInfo, error)
	AddRange(ctx context.Context, fileID string, body models.AddRangeRequest) (int, error)
	Reorder(ctx context.Context, fileID string, from, to int) error
	DeletePage(ctx context.Context, fileID string, index int) (int, error)
	Undo(ctx context.Context, fileID string) (int, error)
	CanUndo(ctx context.Context, fileID string) (bool, error)
}

// Source is a local document to upload
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Display shows the active tab's document
type Display interface {
	// Present renders doc for ticket's tab. It returns once the first pages
	// are drawn; the rest follow in the background.
	Present(ticket Ticket, doc render.Document, scale float64)
	// Focus brings page into view
	Focus(ticket Ticket, page int)
	// Clear empties the display when no tab is active
	Clear()
}

// Saver stores downloaded document bytes and returns where they went
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// MergeResult describes a finished merge
type MergeResult struct {
	TabID     string
	FileID    string
	PageCount int
	Files     int
}

// Controller runs document operations against the registry and service
type Controller struct {
	registry *Registry
	service  DocumentService
	decoder  render.Decoder
	display  Display
	saver    Saver
	logger   *slog.Logger

	zoomDebounce *utils.Debouncer
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller's logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithZoomDebounce sets how long zoom requests are coalesced before the
// re-render
func WithZoomDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.zoomDebounce = utils.NewDebouncer(d)
	}
}

// WithSaver sets where Save puts downloaded documents
func WithSaver(s Saver) Option {
	return func(c *Controller) {
		c.saver = s
	}
}

// NewController wires a controller. display may be nil for headless use.
func NewController(registry *Registry, service DocumentService, decoder render.Decoder, display Display, opts ...Option) *Controller {
	c := &Controller{
		registry:     registry,
		service:      service,
		decoder:      decoder,
		display:      display,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		zoomDebounce: utils.NewDebouncer(150 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.display == nil {
		c.display = nopDisplay{}
	}
	return c
}

// Registry returns the registry the controller writes to
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Shutdown drops any pending zoom re-render
func (c *Controller) Shutdown() {
	c.zoomDebounce.Stop()
}

func (c *Controller) begin(op, tabID string) (Ticket, Session, error) {
	ticket, sess, err := c.registry.Begin(tabID)
	if err != nil {
		return Ticket{}, Session{}, &RaceAbortError{Op: op, TabID: tabID, Err: err}
	}
	return ticket, sess, nil
}

func (c *Controller) commit(op string, ticket Ticket, fn func(s *Session)) error {
	if err := c.registry.Commit(ticket, fn); err != nil {
		c.logger.Debug("Discarded stale result.", "op", op, "tab", ticket.TabID)
		return &RaceAbortError{Op: op, TabID: ticket.TabID}
	}
	return nil
}

// Upload sends src to the service and creates a tab for it without
// activating it
func (c *Controller) Upload(ctx context.Context, src Source) (string, error) {
	result, err := c.upload(ctx, src)
	if err != nil {
		return "", err
	}
	tabID := c.registry.Create(result.FileID, result.PageCount, result.Filename)
	c.logger.Info("Opened document.", "tab", tabID, "file", result.FileID, "pages", result.PageCount)
	return tabID, nil
}

// Open uploads src, then activates and loads the new tab
func (c *Controller) Open(ctx context.Context, src Source) (string, error) {
	tabID, err := c.Upload(ctx, src)
	if err != nil {
		return "", err
	}
	return tabID, c.Activate(ctx, tabID)
}

// Attach opens a tab for a document the service already holds
func (c *Controller) Attach(ctx context.Context, fileID string) (string, error) {
	info, err := c.service.Info(ctx, fileID)
	if err != nil {
		return "", err
	}
	tabID := c.registry.Create(fileID, info.PageCount, info.Filename)
	c.logger.Info("Attached document.", "tab", tabID, "file", fileID, "pages", info.PageCount)
	return tabID, c.Activate(ctx, tabID)
}

func (c *Controller) upload(ctx context.Context, src Source) (*models.UploadResult, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer rc.Close()
	return c.service.Upload(ctx, src.Name(), rc)
}

// Activate switches to tabID. The cached document is re-presented, or
// loaded first when the tab has none. Unknown or already active tabs are a
// no-op.
func (c *Controller) Activate(ctx context.Context, tabID string) error {
	if !c.registry.Activate(tabID) {
		return nil
	}
	return c.show(ctx, tabID)
}

func (c *Controller) show(ctx context.Context, tabID string) error {
	ticket, sess, err := c.begin("activate", tabID)
	if err != nil {
		return err
	}
	if sess.Document == nil {
		return c.Reload(ctx, tabID)
	}
	c.display.Present(ticket, sess.Document, sess.Scale)
	return nil
}

// Close removes tabID. When it was active the surviving tab is shown.
func (c *Controller) Close(ctx context.Context, tabID string) error {
	next, err := c.registry.Close(tabID)
	if err != nil {
		return err
	}
	c.logger.Info("Closed tab.", "tab", tabID)
	if next != "" {
		return c.show(ctx, next)
	}
	if c.registry.ActiveID() == "" {
		c.display.Clear()
	}
	return nil
}

// Reload fetches the current bytes of the tab's document, replaces its
// handle and presents it
func (c *Controller) Reload(ctx context.Context, tabID string) error {
	const op = "reload"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return err
	}

	data, err := c.service.Fetch(ctx, sess.FileID)
	if err != nil {
		return err
	}
	if !c.registry.Valid(ticket) {
		return &RaceAbortError{Op: op, TabID: tabID}
	}
	doc, err := c.decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", sess.Filename, err)
	}

	var scale float64
	stale := false
	if err := c.commit(op, ticket, func(s *Session) {
		if s.Revision != sess.Revision {
			stale = true
			return
		}
		s.Document = doc
		scale = s.Scale
	}); err != nil {
		return err
	}
	if stale {
		// a later mutation's own reload presents the newer document
		c.logger.Debug("Discarded reload of an older revision.", "tab", tabID, "revision", sess.Revision)
		return nil
	}
	c.display.Present(ticket, doc, scale)
	return nil
}

// invalidate drops the cached handle after the service file changed
func invalidate(s *Session) {
	s.Document = nil
	s.Revision++
}

// InsertPages copies source pages indices (zero-based) into the tab's
// document at position at
func (c *Controller) InsertPages(ctx context.Context, tabID, sourceFileID string, indices []int, at int) error {
	const op = "add pages"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return invalid(op, "no valid pages selected")
	}
	if at < 0 || at > sess.PageCount {
		return invalid(op, "insert position must be between 1 and %d", sess.PageCount+1)
	}

	count, err := c.service.AddRange(ctx, sess.FileID, models.AddRangeRequest{
		SourceFileID:   sourceFileID,
		Pages:          indices,
		InsertPosition: at,
	})
	if err != nil {
		return err
	}
	if err := c.commit(op, ticket, func(s *Session) {
		s.PageCount = count
		invalidate(s)
	}); err != nil {
		return err
	}
	c.logger.Info("Inserted pages.", "tab", tabID, "file", sess.FileID, "count", len(indices), "at", at)
	return c.Reload(ctx, tabID)
}

// MovePage asks the service to swap pages from and to (zero-based). The
// current page follows the moved page.
func (c *Controller) MovePage(ctx context.Context, tabID string, from, to int) error {
	const op = "move page"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return err
	}
	if from < 0 || from >= sess.PageCount || to < 0 || to >= sess.PageCount {
		return invalid(op, "page must be between 1 and %d", sess.PageCount)
	}
	if from == to {
		return invalid(op, "page is already at position %d", to+1)
	}

	if err := c.service.Reorder(ctx, sess.FileID, from, to); err != nil {
		return err
	}
	if err := c.commit(op, ticket, func(s *Session) {
		s.CurrentPage = to + 1
		invalidate(s)
	}); err != nil {
		return err
	}
	return c.Reload(ctx, tabID)
}

// MovePageUp moves the current page one position towards the start
func (c *Controller) MovePageUp(ctx context.Context, tabID string) error {
	sess, ok := c.registry.Get(tabID)
	if !ok {
		return &RaceAbortError{Op: "move page", TabID: tabID, Err: ErrUnknownTab}
	}
	if sess.CurrentPage <= 1 {
		return invalid("move page", "page %d is already first", sess.CurrentPage)
	}
	return c.MovePage(ctx, tabID, sess.CurrentPage-1, sess.CurrentPage-2)
}

// MovePageDown moves the current page one position towards the end
func (c *Controller) MovePageDown(ctx context.Context, tabID string) error {
	sess, ok := c.registry.Get(tabID)
	if !ok {
		return &RaceAbortError{Op: "move page", TabID: tabID, Err: ErrUnknownTab}
	}
	if sess.CurrentPage >= sess.PageCount {
		return invalid("move page", "page %d is already last", sess.CurrentPage)
	}
	return c.MovePage(ctx, tabID, sess.CurrentPage-1, sess.CurrentPage)
}

// DeletePage removes the page at index (zero-based). The last page of a
// document is never deleted.
func (c *Controller) DeletePage(ctx context.Context, tabID string, index int) error {
	const op = "delete page"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return err
	}
	if sess.PageCount <= 1 {
		return invalid(op, "a document needs at least one page")
	}
	if index < 0 || index >= sess.PageCount {
		return invalid(op, "page must be between 1 and %d", sess.PageCount)
	}

	count, err := c.service.DeletePage(ctx, sess.FileID, index)
	if err != nil {
		return err
	}
	if err := c.commit(op, ticket, func(s *Session) {
		s.PageCount = count
		s.CurrentPage = min(s.CurrentPage, count)
		invalidate(s)
	}); err != nil {
		return err
	}
	c.logger.Info("Deleted page.", "tab", tabID, "file", sess.FileID, "page", index+1)
	return c.Reload(ctx, tabID)
}

// Undo reverts the last change the service recorded for the tab's document
func (c *Controller) Undo(ctx context.Context, tabID string) error {
	const op = "undo"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return err
	}

	count, err := c.service.Undo(ctx, sess.FileID)
	if err != nil {
		return err
	}
	if err := c.commit(op, ticket, func(s *Session) {
		s.PageCount = count
		invalidate(s)
	}); err != nil {
		return err
	}
	return c.Reload(ctx, tabID)
}

// CanUndo asks the service whether the tab's document has undo history
func (c *Controller) CanUndo(ctx context.Context, tabID string) (bool, error) {
	sess, ok := c.registry.Get(tabID)
	if !ok {
		return false, &RaceAbortError{Op: "undo status", TabID: tabID, Err: ErrUnknownTab}
	}
	return c.service.CanUndo(ctx, sess.FileID)
}

// MergeInto uploads every source and inserts all of its pages into the
// tab's document, in order, starting at position at. The tab must stay
// active throughout; otherwise the merge stops and the steps already done
// stay applied on the service.
func (c *Controller) MergeInto(ctx context.Context, tabID string, at int, sources []Source) (*MergeResult, error) {
	const op = "merge"
	ticket, sess, err := c.begin(op, tabID)
	if err != nil {
		return nil, err
	}
	if len(sources) < MinMergeFiles {
		return nil, invalid(op, "merging needs at least %d files", MinMergeFiles)
	}
	if at < 0 || at > sess.PageCount {
		return nil, invalid(op, "insert position must be between 1 and %d", sess.PageCount+1)
	}

	cursor := at
	merged := 0
	abort := func() error {
		return &RaceAbortError{Op: op, TabID: tabID, Partial: merged > 0}
	}
	// fail reports a service error; once files were merged the tab is
	// reloaded so it shows what the service now holds
	fail := func(err error) error {
		if merged == 0 {
			return err
		}
		if rerr := c.Reload(ctx, tabID); rerr != nil && !IsRaceAbort(rerr) {
			c.logger.Warn("Reload after failed merge failed.", "tab", tabID, "error", rerr)
		}
		return &PartialMergeError{TabID: tabID, Merged: merged, Err: err}
	}

	for _, src := range sources {
		if !c.registry.Valid(ticket) {
			return nil, abort()
		}
		uploaded, err := c.upload(ctx, src)
		if err != nil {
			return nil, fail(err)
		}
		if !c.registry.Valid(ticket) {
			return nil, abort()
		}

		count, err := c.service.AddRange(ctx, sess.FileID, models.AddRangeRequest{
			SourceFileID:   uploaded.FileID,
			Pages:          pagerange.All(uploaded.PageCount),
			InsertPosition: cursor,
		})
		if err != nil {
			return nil, fail(err)
		}
		merged++
		if err := c.commit(op, ticket, func(s *Session) {
			s.PageCount = count
			invalidate(s)
		}); err != nil {
			return nil, abort()
		}
		cursor += uploaded.PageCount
		c.logger.Debug("Merged file.", "tab", tabID, "source", uploaded.FileID, "pages", uploaded.PageCount)
	}

	if err := c.Reload(ctx, tabID); err != nil {
		if IsRaceAbort(err) {
			return nil, abort()
		}
		return nil, err
	}
	final, _ := c.registry.Get(tabID)
	c.logger.Info("Merged files into document.", "tab", tabID, "file", sess.FileID, "files", merged, "pages", final.PageCount)
	return &MergeResult{TabID: tabID, FileID: sess.FileID, PageCount: final.PageCount, Files: merged}, nil
}

// MergeStandalone uploads the first source and appends every other source
// to it, then opens the result in a new active tab named filename
func (c *Controller) MergeStandalone(ctx context.Context, sources []Source, filename string) (*MergeResult, error) {
	const op = "merge"
	if len(sources) < MinMergeFiles {
		return nil, invalid(op, "merging needs at least %d files", MinMergeFiles)
	}
	filename = MergeFilename(filename)

	first, err := c.upload(ctx, sources[0])
	if err != nil {
		return nil, err
	}
	pageCount := first.PageCount
	for _, src := range sources[1:] {
		uploaded, err := c.upload(ctx, src)
		if err != nil {
			return nil, err
		}
		pageCount, err = c.service.AddRange(ctx, first.FileID, models.AddRangeRequest{
			SourceFileID:   uploaded.FileID,
			Pages:          pagerange.All(uploaded.PageCount),
			InsertPosition: pageCount,
		})
		if err != nil {
			return nil, err
		}
	}

	tabID := c.registry.Create(first.FileID, pageCount, filename)
	c.logger.Info("Merged files into new document.", "tab", tabID, "file", first.FileID, "files", len(sources), "pages", pageCount)
	if err := c.Activate(ctx, tabID); err != nil && !IsRaceAbort(err) {
		return nil, err
	}
	return &MergeResult{TabID: tabID, FileID: first.FileID, PageCount: pageCount, Files: len(sources)}, nil
}

// MergeFilename defaults an empty name and adds the .pdf extension
func MergeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultMergeFilename
	}
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	return name
}

// Zoom multiplies the tab's scale by factor and returns the clamped result.
// The re-render waits until zoom requests have been quiet for the debounce
// period.
func (c *Controller) Zoom(ctx context.Context, tabID string, factor float64) (float64, error) {
	sess, ok := c.registry.Get(tabID)
	if !ok || c.registry.ActiveID() != tabID {
		return 0, &RaceAbortError{Op: "zoom", TabID: tabID, Err: ErrInactiveTab}
	}
	scale, _ := c.registry.SetScale(tabID, sess.Scale*factor)

	c.zoomDebounce.Trigger(func() {
		if err := c.show(ctx, tabID); err != nil && !IsRaceAbort(err) {
			c.logger.Warn("Zoom re-render failed.", "tab", tabID, "error", err)
		}
	})
	return scale, nil
}

// FlushZoom runs a pending zoom re-render now
func (c *Controller) FlushZoom() bool {
	return c.zoomDebounce.Flush()
}

// Save downloads the tab's document and hands it to the saver. An empty
// filename keeps the session's filename.
func (c *Controller) Save(ctx context.Context, tabID, filename string) (string, error) {
	const op = "save"
	if c.saver == nil {
		return "", errors.New("saving is not configured")
	}
	sess, ok := c.registry.Get(tabID)
	if !ok {
		return "", &RaceAbortError{Op: op, TabID: tabID, Err: ErrUnknownTab}
	}
	if strings.TrimSpace(filename) == "" {
		filename = sess.Filename
	}

	data, err := c.service.Download(ctx, sess.FileID)
	if err != nil {
		return "", err
	}
	path, err := c.saver.Save(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	c.logger.Info("Saved document.", "tab", tabID, "file", sess.FileID, "path", path)
	return path, nil
}

// SelectPage makes page current and brings it into view
func (c *Controller) SelectPage(tabID string, page int) error {
	ticket, sess, err := c.begin("select page", tabID)
	if err != nil {
		return err
	}
	if page < 1 || page > sess.PageCount {
		return invalid("select page", "page must be between 1 and %d", sess.PageCount)
	}
	c.registry.Select(tabID, page)
	c.display.Focus(ticket, page)
	return nil
}

type nopDisplay struct{}

func (nopDisplay) Present(Ticket, render.Document, float64) {}
func (nopDisplay) Focus(Ticket, int)                        {}
func (nopDisplay) Clear()                                   {}
