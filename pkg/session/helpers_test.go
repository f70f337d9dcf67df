package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/testhelpers"
)

type presentCall struct {
	ticket Ticket
	doc    render.Document
	scale  float64
}

type recordingDisplay struct {
	mu       sync.Mutex
	presents []presentCall
	focused  []int
	clears   int
}

func (d *recordingDisplay) Present(ticket Ticket, doc render.Document, scale float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presents = append(d.presents, presentCall{ticket: ticket, doc: doc, scale: scale})
}

func (d *recordingDisplay) Focus(ticket Ticket, page int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = append(d.focused, page)
}

func (d *recordingDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
}

func (d *recordingDisplay) presented() []presentCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]presentCall(nil), d.presents...)
}

type memorySaver struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memorySaver) Save(ctx context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[filename] = data
	return "/downloads/" + filename, nil
}

type fixture struct {
	fake     *testhelpers.FakeService
	registry *Registry
	display  *recordingDisplay
	saver    *memorySaver
	ctrl     *Controller
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		fake:     testhelpers.NewFakeService(),
		registry: NewRegistry(),
		display:  &recordingDisplay{},
		saver:    &memorySaver{},
	}
	opts = append([]Option{WithZoomDebounce(time.Hour), WithSaver(f.saver)}, opts...)
	f.ctrl = NewController(f.registry, f.fake, &testhelpers.LabelDecoder{}, f.display, opts...)
	t.Cleanup(f.ctrl.Shutdown)
	return f
}

// open uploads a document with n labelled pages and activates it
func (f *fixture) open(t *testing.T, prefix string, n int) string {
	t.Helper()
	tabID, err := f.ctrl.Open(context.Background(), testhelpers.Doc(prefix, n))
	if err != nil {
		t.Fatalf("failed to open %s: %v", prefix, err)
	}
	return tabID
}

func (f *fixture) session(t *testing.T, tabID string) Session {
	t.Helper()
	sess, ok := f.registry.Get(tabID)
	if !ok {
		t.Fatalf("tab %s not found", tabID)
	}
	return sess
}

func labels(doc render.Document) []string {
	if d, ok := doc.(*testhelpers.LabelDocument); ok {
		return d.Labels
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// scriptedPrompter answers questions in order
type scriptedPrompter struct {
	mu       sync.Mutex
	answers  []string
	confirms []bool
	asked    []Question
}

func (p *scriptedPrompter) Ask(ctx context.Context, q Question) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, q)
	if len(p.answers) == 0 {
		return "", false
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, true
}

func (p *scriptedPrompter) Confirm(ctx context.Context, message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.confirms) == 0 {
		return false
	}
	c := p.confirms[0]
	p.confirms = p.confirms[1:]
	return c
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) last() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return Notice{}
	}
	return n.notices[len(n.notices)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

// docResolver resolves names like "X3" to a labelled document with 3 pages
type docResolver struct{}

func (docResolver) Resolve(path string) (Source, error) {
	var prefix string
	var n int
	if _, err := fmt.Sscanf(path, "%1s%d", &prefix, &n); err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return testhelpers.Doc(prefix, n), nil
}

// heldFetchServer serves the service over HTTP. Once armed, the next
// document GET reads the pages on arrival and waits for release before
// answering.
type heldFetchServer struct {
	*httptest.Server
	armed   atomic.Bool
	arrived chan struct{}
	release chan struct{}
}

func newHeldFetchServer(t *testing.T, fake *testhelpers.FakeService) *heldFetchServer {
	t.Helper()
	h := &heldFetchServer{arrived: make(chan struct{}), release: make(chan struct{})}
	inner := testhelpers.Handler(fake)
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isDocument := r.Method == http.MethodGet && strings.Count(r.URL.Path, "/") == 3
		if !isDocument || !h.armed.CompareAndSwap(true, false) {
			inner.ServeHTTP(w, r)
			return
		}
		rec := httptest.NewRecorder()
		inner.ServeHTTP(rec, r)
		close(h.arrived)
		<-h.release
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	}))
	t.Cleanup(h.Close)
	return h
}
