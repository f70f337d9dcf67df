package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pluqqy/pdfdeck/pkg/pagerange"
	"github.com/pluqqy/pdfdeck/pkg/remote"
)

// Zoom factors for one zoom step in and out
const (
	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8
)

// Question asks the user for a line of text
type Question struct {
	Title   string
	Prompt  string
	Default string
}

// Prompter resolves questions for user flows. Both methods block until the
// user answers; ok=false and false mean cancelled.
type Prompter interface {
	Ask(ctx context.Context, q Question) (answer string, ok bool)
	Confirm(ctx context.Context, message string) bool
}

// NoticeLevel sets how a notice is shown
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a message for the user
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(n Notice)
}

// SourceResolver turns a path typed by the user into an upload source
type SourceResolver interface {
	Resolve(path string) (Source, error)
}

// Flows are the user-facing operations: they collect answers through the
// Prompter, call the controller and report the outcome through the Notifier
type Flows struct {
	ctrl     *Controller
	prompter Prompter
	notifier Notifier
	sources  SourceResolver
}

// NewFlows creates user flows on top of ctrl
func NewFlows(ctrl *Controller, prompter Prompter, notifier Notifier, sources SourceResolver) *Flows {
	return &Flows{ctrl: ctrl, prompter: prompter, notifier: notifier, sources: sources}
}

func (f *Flows) activeTab() (Session, bool) {
	return f.ctrl.registry.Active()
}

// report shows err to the user and returns whether there was one. Race
// aborts of single-step operations stay silent.
func (f *Flows) report(op string, err error) bool {
	if err == nil {
		return false
	}

	var raceErr *RaceAbortError
	var partialErr *PartialMergeError
	var netErr *remote.NetworkError
	switch {
	case errors.As(err, &partialErr):
		reason := partialErr.Err.Error()
		if errors.As(partialErr.Err, &netErr) {
			reason = netErr.Reason()
		}
		f.notifier.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf(
			"Failed to %s: %s. %d file(s) were already merged on the server.", op, reason, partialErr.Merged)})
	case errors.As(err, &raceErr):
		if raceErr.Op != "merge" {
			f.ctrl.logger.Debug("Operation abandoned after tab change.", "op", op, "tab", raceErr.TabID)
			return true
		}
		msg := "Merge cancelled because the tab changed."
		if raceErr.Partial {
			msg = "Merge cancelled because the tab changed. Some files were already merged on the server."
		}
		f.notifier.Notify(Notice{Level: NoticeWarning, Message: msg})
	case remote.IsNotFound(err):
		f.notifier.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: the document is no longer on the server", op)})
	case errors.As(err, &netErr):
		f.notifier.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: %s", op, netErr.Reason())})
	case IsValidation(err):
		f.notifier.Notify(Notice{Level: NoticeWarning, Message: err.Error()})
	default:
		f.notifier.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: %v", op, err)})
	}
	return true
}

func (f *Flows) resolve(path string) (Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, invalid("open", "no file given")
	}
	return f.sources.Resolve(path)
}

// OpenFile asks for a path and opens it in a new tab
func (f *Flows) OpenFile(ctx context.Context) {
	path, ok := f.prompter.Ask(ctx, Question{Title: "Open", Prompt: "PDF file to open:"})
	if !ok {
		return
	}
	f.OpenPath(ctx, path)
}

// OpenPath opens the file at path in a new tab
func (f *Flows) OpenPath(ctx context.Context, path string) {
	src, err := f.resolve(path)
	if f.report("open document", err) {
		return
	}
	_, err = f.ctrl.Open(ctx, src)
	f.report("open document", err)
}

// AttachFile asks for the id of a document already on the service
func (f *Flows) AttachFile(ctx context.Context) {
	fileID, ok := f.prompter.Ask(ctx, Question{Title: "Attach", Prompt: "File id on the server:"})
	if !ok || strings.TrimSpace(fileID) == "" {
		return
	}
	_, err := f.ctrl.Attach(ctx, strings.TrimSpace(fileID))
	f.report("attach document", err)
}

// AddPages uploads another file and inserts a range of its pages into the
// active document
func (f *Flows) AddPages(ctx context.Context) {
	const op = "add pages"
	target, ok := f.activeTab()
	if !ok {
		return
	}
	path, ok := f.prompter.Ask(ctx, Question{Title: "Add pages", Prompt: "PDF file to take pages from:"})
	if !ok {
		return
	}
	src, err := f.resolve(path)
	if f.report(op, err) {
		return
	}

	// The source is uploaded first so its page count bounds the range
	uploaded, err := f.ctrl.upload(ctx, src)
	if f.report(op, err) {
		return
	}

	answer, ok := f.prompter.Ask(ctx, Question{
		Title:   "Add pages",
		Prompt:  fmt.Sprintf("Pages to add (1-%d), e.g. 1-3 or 1,3,5:", uploaded.PageCount),
		Default: fmt.Sprintf("1-%d", uploaded.PageCount),
	})
	if !ok {
		return
	}
	indices := pagerange.Parse(answer, uploaded.PageCount)
	if len(indices) == 0 {
		f.report(op, invalid(op, "%q is not a valid page range", answer))
		return
	}

	// Re-read the target, its page count may have changed while prompting
	target, ok = f.ctrl.registry.Get(target.TabID)
	if !ok {
		return
	}
	at, ok := f.askPosition(ctx, op, target.PageCount)
	if !ok {
		return
	}

	err = f.ctrl.InsertPages(ctx, target.TabID, uploaded.FileID, indices, at)
	if !f.report(op, err) {
		f.notifier.Notify(Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Added %d page(s)", len(indices))})
	}
}

// askPosition prompts for a 1-based insert position and returns it zero-based
func (f *Flows) askPosition(ctx context.Context, op string, pageCount int) (int, bool) {
	answer, ok := f.prompter.Ask(ctx, Question{
		Title:   op,
		Prompt:  fmt.Sprintf("Insert at position (1-%d):", pageCount+1),
		Default: strconv.Itoa(pageCount + 1),
	})
	if !ok {
		return 0, false
	}
	at, err := pagerange.ParsePosition(answer, pageCount)
	if err != nil {
		f.report(op, invalid(op, "%q is not a valid position", strings.TrimSpace(answer)))
		return 0, false
	}
	return at, true
}

// Merge asks for files and merges them either into the active document or
// into a new one
func (f *Flows) Merge(ctx context.Context) {
	const op = "merge"
	answer, ok := f.prompter.Ask(ctx, Question{Title: "Merge", Prompt: "PDF files to merge, separated by commas:"})
	if !ok {
		return
	}
	var sources []Source
	for _, path := range strings.Split(answer, ",") {
		if strings.TrimSpace(path) == "" {
			continue
		}
		src, err := f.resolve(path)
		if f.report(op, err) {
			return
		}
		sources = append(sources, src)
	}
	if len(sources) < MinMergeFiles {
		f.report(op, invalid(op, "merging needs at least %d files", MinMergeFiles))
		return
	}

	target, hasTarget := f.activeTab()
	if hasTarget && f.prompter.Confirm(ctx, "Merge with the open document? (no: merge the selected files only)") {
		at, ok := f.askPosition(ctx, op, target.PageCount)
		if !ok {
			return
		}
		result, err := f.ctrl.MergeInto(ctx, target.TabID, at, sources)
		if !f.report(op, err) {
			f.notifier.Notify(Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Merged %d files, %d pages", result.Files, result.PageCount)})
		}
		return
	}

	name, ok := f.prompter.Ask(ctx, Question{Title: "Merge", Prompt: "Name for the merged file:", Default: DefaultMergeFilename})
	if !ok {
		return
	}
	result, err := f.ctrl.MergeStandalone(ctx, sources, name)
	if !f.report(op, err) {
		f.notifier.Notify(Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Merged %d files, %d pages", result.Files, result.PageCount)})
	}
}

// MoveUp moves the current page up one position
func (f *Flows) MoveUp(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		f.report("move page", f.ctrl.MovePageUp(ctx, sess.TabID))
	}
}

// MoveDown moves the current page down one position
func (f *Flows) MoveDown(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		f.report("move page", f.ctrl.MovePageDown(ctx, sess.TabID))
	}
}

// DeleteCurrent deletes the current page after confirmation
func (f *Flows) DeleteCurrent(ctx context.Context) {
	const op = "delete page"
	sess, ok := f.activeTab()
	if !ok {
		return
	}
	if sess.PageCount <= 1 {
		f.report(op, invalid(op, "a document needs at least one page"))
		return
	}
	if !f.prompter.Confirm(ctx, fmt.Sprintf("Delete page %d?", sess.CurrentPage)) {
		return
	}
	f.report(op, f.ctrl.DeletePage(ctx, sess.TabID, sess.CurrentPage-1))
}

// ZoomIn enlarges the active document
func (f *Flows) ZoomIn(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		_, err := f.ctrl.Zoom(ctx, sess.TabID, ZoomInFactor)
		f.report("zoom", err)
	}
}

// ZoomOut shrinks the active document
func (f *Flows) ZoomOut(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		_, err := f.ctrl.Zoom(ctx, sess.TabID, ZoomOutFactor)
		f.report("zoom", err)
	}
}

// Save downloads the active document under its own name
func (f *Flows) Save(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		f.save(ctx, sess.TabID, sess.Filename)
	}
}

// SaveAs asks for a filename, then downloads the active document
func (f *Flows) SaveAs(ctx context.Context) {
	sess, ok := f.activeTab()
	if !ok {
		return
	}
	name, ok := f.prompter.Ask(ctx, Question{Title: "Save as", Prompt: "File name:", Default: sess.Filename})
	if !ok || strings.TrimSpace(name) == "" {
		return
	}
	f.save(ctx, sess.TabID, strings.TrimSpace(name))
}

func (f *Flows) save(ctx context.Context, tabID, filename string) {
	path, err := f.ctrl.Save(ctx, tabID, filename)
	if !f.report("save", err) {
		f.notifier.Notify(Notice{Level: NoticeSuccess, Message: "Saved " + path})
	}
}

// Undo reverts the last change to the active document
func (f *Flows) Undo(ctx context.Context) {
	if sess, ok := f.activeTab(); ok {
		f.report("undo", f.ctrl.Undo(ctx, sess.TabID))
	}
}

// CloseTab closes tabID
func (f *Flows) CloseTab(ctx context.Context, tabID string) {
	f.report("close tab", f.ctrl.Close(ctx, tabID))
}

// Switch activates tabID
func (f *Flows) Switch(ctx context.Context, tabID string) {
	f.report("switch tab", f.ctrl.Activate(ctx, tabID))
}

// Select makes page current in the active document
func (f *Flows) Select(page int) {
	if sess, ok := f.activeTab(); ok {
		if err := f.ctrl.SelectPage(sess.TabID, page); err != nil && !IsValidation(err) {
			f.report("select page", err)
		}
	}
}
