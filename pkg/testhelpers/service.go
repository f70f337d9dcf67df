// Package testhelpers provides an in-memory document service with the same
// semantics as the real backend, an HTTP front for it, and fixtures for
// tests across packages.
package testhelpers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/remote"
)

// MaxUndo matches the backend's undo history depth
const MaxUndo = 10

// Operation names accepted by Pause, FailNext and Calls
const (
	OpUpload     = "upload"
	OpFetch      = "fetch"
	OpDownload   = "download"
	OpInfo       = "info"
	OpAddRange   = "add-range"
	OpReorder    = "reorder"
	OpDelete     = "delete"
	OpUndo       = "undo"
	OpUndoStatus = "undo-status"
)

type document struct {
	filename string
	pages    []string
	history  [][]string
}

type failure struct {
	status int
	detail string
}

// FakeService is an in-memory document service. Documents are lists of
// page labels; uploaded content is one label per line.
type FakeService struct {
	mu       sync.Mutex
	docs     map[string]*document
	nextID   int
	calls    map[string]int
	gates    map[string]*Gate
	failures map[string]failure
}

// NewFakeService creates an empty service
func NewFakeService() *FakeService {
	return &FakeService{
		docs:     make(map[string]*document),
		calls:    make(map[string]int),
		gates:    make(map[string]*Gate),
		failures: make(map[string]failure),
	}
}

// Gate blocks the next call of an operation until released
type Gate struct {
	Entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Release lets the blocked call continue
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Pause makes the next call of op block; Entered is closed once it arrives
func (f *FakeService) Pause(op string) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &Gate{Entered: make(chan struct{}), release: make(chan struct{})}
	f.gates[op] = g
	return g
}

// FailNext makes the next call of op fail with the given status and detail
func (f *FakeService) FailNext(op string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = failure{status: status, detail: detail}
}

// Calls returns how many times op was invoked
func (f *FakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Pages returns a copy of the stored page labels
func (f *FakeService) Pages(fileID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[fileID]
	if !ok {
		return nil
	}
	return append([]string(nil), doc.pages...)
}

// Seed stores a document directly and returns its id
func (f *FakeService) Seed(filename string, pages ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(filename, append([]string(nil), pages...))
}

func (f *FakeService) store(filename string, pages []string) string {
	id := fmt.Sprintf("file%03d", f.nextID)
	f.nextID++
	f.docs[id] = &document{filename: filename, pages: pages}
	return id
}

// enter records the call, waits on a gate if one is set, and returns an injected failure
func (f *FakeService) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	delete(f.gates, op)
	fail, hasFailure := f.failures[op]
	delete(f.failures, op)
	f.mu.Unlock()

	if gate != nil {
		close(gate.Entered)
		select {
		case <-gate.release:
		case <-ctx.Done():
			return &remote.NetworkError{Op: op, Err: ctx.Err()}
		}
	}
	if hasFailure {
		return &remote.NetworkError{Op: op, Status: fail.status, Detail: fail.detail}
	}
	return nil
}

func (f *FakeService) lookup(op, fileID string) (*document, error) {
	doc, ok := f.docs[fileID]
	if !ok {
		return nil, &remote.NetworkError{Op: op, Status: http.StatusNotFound, Detail: "File not found"}
	}
	return doc, nil
}

func (doc *document) snapshot() {
	doc.history = append(doc.history, append([]string(nil), doc.pages...))
	if len(doc.history) > MaxUndo {
		doc.history = doc.history[1:]
	}
}

// Upload stores the content as a new document
func (f *FakeService) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	if err := f.enter(ctx, OpUpload); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &remote.NetworkError{Op: OpUpload, Err: err}
	}
	pages := DecodeLabels(data)
	if len(pages) == 0 {
		return nil, &remote.NetworkError{Op: OpUpload, Status: http.StatusInternalServerError, Detail: "document has no pages"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.store(filename, pages)
	return &models.UploadResult{FileID: id, PageCount: len(pages), Filename: filename}, nil
}

// Fetch returns the document encoded as page labels
func (f *FakeService) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if err := f.enter(ctx, OpFetch); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpFetch, fileID)
	if err != nil {
		return nil, err
	}
	return EncodeLabels(doc.pages), nil
}

// Download is Fetch under its own operation name
func (f *FakeService) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := f.enter(ctx, OpDownload); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpDownload, fileID)
	if err != nil {
		return nil, err
	}
	return EncodeLabels(doc.pages), nil
}

// Info returns page count and filename
func (f *FakeService) Info(ctx context.Context, fileID string) (*models.DocumentInfo, error) {
	if err := f.enter(ctx, OpInfo); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpInfo, fileID)
	if err != nil {
		return nil, err
	}
	return &models.DocumentInfo{PageCount: len(doc.pages), Filename: doc.filename}, nil
}

// AddRange inserts source pages at the insert position
func (f *FakeService) AddRange(ctx context.Context, fileID string, body models.AddRangeRequest) (int, error) {
	if err := f.enter(ctx, OpAddRange); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpAddRange, fileID)
	if err != nil {
		return 0, err
	}
	source, ok := f.docs[body.SourceFileID]
	if !ok {
		return 0, &remote.NetworkError{Op: OpAddRange, Status: http.StatusNotFound, Detail: "Source file not found"}
	}
	if body.InsertPosition < 0 || body.InsertPosition > len(doc.pages) {
		return 0, &remote.NetworkError{Op: OpAddRange, Status: http.StatusInternalServerError, Detail: "list index out of range"}
	}

	doc.snapshot()
	var inserted []string
	for _, idx := range body.Pages {
		if idx >= 0 && idx < len(source.pages) {
			inserted = append(inserted, source.pages[idx])
		}
	}
	pages := make([]string, 0, len(doc.pages)+len(inserted))
	pages = append(pages, doc.pages[:body.InsertPosition]...)
	pages = append(pages, inserted...)
	pages = append(pages, doc.pages[body.InsertPosition:]...)
	doc.pages = pages
	return len(doc.pages), nil
}

// Reorder swaps the pages at from and to, like the backend
func (f *FakeService) Reorder(ctx context.Context, fileID string, from, to int) error {
	if err := f.enter(ctx, OpReorder); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpReorder, fileID)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(doc.pages) || to < 0 || to >= len(doc.pages) {
		return &remote.NetworkError{Op: OpReorder, Status: http.StatusInternalServerError, Detail: "list index out of range"}
	}
	doc.snapshot()
	doc.pages[from], doc.pages[to] = doc.pages[to], doc.pages[from]
	return nil
}

// DeletePage removes one page; the last page cannot be deleted
func (f *FakeService) DeletePage(ctx context.Context, fileID string, index int) (int, error) {
	if err := f.enter(ctx, OpDelete); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpDelete, fileID)
	if err != nil {
		return 0, err
	}
	if len(doc.pages) <= 1 {
		return 0, &remote.NetworkError{Op: OpDelete, Status: http.StatusBadRequest, Detail: "Cannot delete the last page"}
	}
	if index < 0 || index >= len(doc.pages) {
		return 0, &remote.NetworkError{Op: OpDelete, Status: http.StatusBadRequest, Detail: "Page out of range"}
	}
	doc.snapshot()
	doc.pages = append(doc.pages[:index:index], doc.pages[index+1:]...)
	return len(doc.pages), nil
}

// Undo restores the previous state
func (f *FakeService) Undo(ctx context.Context, fileID string) (int, error) {
	if err := f.enter(ctx, OpUndo); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpUndo, fileID)
	if err != nil {
		return 0, err
	}
	if len(doc.history) == 0 {
		return 0, &remote.NetworkError{Op: OpUndo, Status: http.StatusBadRequest, Detail: "No undo history available"}
	}
	doc.pages = doc.history[len(doc.history)-1]
	doc.history = doc.history[:len(doc.history)-1]
	return len(doc.pages), nil
}

// UndoStatus reports the undo depth
func (f *FakeService) UndoStatus(ctx context.Context, fileID string) (*models.UndoStatus, error) {
	if err := f.enter(ctx, OpUndoStatus); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.lookup(OpUndoStatus, fileID)
	if err != nil {
		return nil, err
	}
	return &models.UndoStatus{CanUndo: len(doc.history) > 0, UndoCount: len(doc.history)}, nil
}

// CanUndo is UndoStatus reduced to the flag
func (f *FakeService) CanUndo(ctx context.Context, fileID string) (bool, error) {
	status, err := f.UndoStatus(ctx, fileID)
	if err != nil {
		return false, err
	}
	return status.CanUndo, nil
}

// EncodeLabels renders page labels in the upload format
func EncodeLabels(pages []string) []byte {
	return []byte(strings.Join(pages, "\n"))
}

// DecodeLabels parses the upload format, one non-empty label per line
func DecodeLabels(data []byte) []string {
	var pages []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			pages = append(pages, line)
		}
	}
	return pages
}

// Labels builds n page labels such as X1, X2, X3
func Labels(prefix string, n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return pages
}
