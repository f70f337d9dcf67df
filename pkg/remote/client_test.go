package remote_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/remote"
	"github.com/pluqqy/pdfdeck/pkg/testhelpers"
)

func newTestClient(t *testing.T) (*remote.Client, *testhelpers.FakeService) {
	t.Helper()
	fake := testhelpers.NewFakeService()
	srv := testhelpers.NewServer(fake)
	t.Cleanup(srv.Close)
	return remote.NewClient(srv.URL+"/"), fake
}

func TestClient_UploadAndFetch(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	src := testhelpers.Doc("A", 3)
	result, err := client.Upload(ctx, src.Filename, bytes.NewReader(src.Data))
	require.NoError(t, err)
	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, "A.pdf", result.Filename)

	data, err := client.Fetch(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, testhelpers.DecodeLabels(data))

	data, err = client.Download(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, testhelpers.DecodeLabels(data))

	info, err := client.Info(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, &models.DocumentInfo{PageCount: 3, Filename: "A.pdf"}, info)

	assert.Equal(t, 1, fake.Calls(testhelpers.OpUpload))
}

func TestClient_PageMutations(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	target := fake.Seed("target.pdf", "T1", "T2", "T3")
	source := fake.Seed("source.pdf", "S1", "S2")

	count, err := client.AddRange(ctx, target, models.AddRangeRequest{
		SourceFileID:   source,
		Pages:          []int{0, 1},
		InsertPosition: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, []string{"T1", "S1", "S2", "T2", "T3"}, fake.Pages(target))

	require.NoError(t, client.Reorder(ctx, target, 0, 1))
	assert.Equal(t, []string{"S1", "T1", "S2", "T2", "T3"}, fake.Pages(target))

	count, err = client.DeletePage(ctx, target, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	canUndo, err := client.CanUndo(ctx, target)
	require.NoError(t, err)
	assert.True(t, canUndo)

	status, err := client.UndoStatus(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 3, status.UndoCount)

	count, err = client.Undo(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, []string{"S1", "T1", "S2", "T2", "T3"}, fake.Pages(target))
}

func TestClient_ErrorDetailIsSurfaced(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	id := fake.Seed("one.pdf", "P1")
	_, err := client.Undo(ctx, id)
	require.Error(t, err)

	var netErr *remote.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusBadRequest, netErr.Status)
	assert.Equal(t, "No undo history available", netErr.Detail)
	assert.Equal(t, "No undo history available", netErr.Reason())
	assert.Equal(t, "undo", netErr.Op)

	_, err = client.Fetch(ctx, "missing")
	assert.True(t, remote.IsNotFound(err))

	_, err = client.DeletePage(ctx, id, 0)
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "Cannot delete the last page", netErr.Detail)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := remote.NewClient(url, remote.WithTimeout(time.Second))
	_, err := client.Info(context.Background(), "abc")
	require.Error(t, err)

	var netErr *remote.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
	assert.NotNil(t, netErr.Err)
	assert.False(t, remote.IsNotFound(err))
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL, remote.WithHTTPClient(srv.Client()))
	err := client.Reorder(context.Background(), "abc", 0, 1)

	var netErr *remote.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusBadGateway, netErr.Status)
	assert.Empty(t, netErr.Detail)
	assert.Contains(t, netErr.Error(), "502")
}

func TestNetworkError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *remote.NetworkError
		want string
	}{
		{
			name: "transport",
			err:  &remote.NetworkError{Op: "fetch", Err: errors.New("connection refused")},
			want: "fetch: connection refused",
		},
		{
			name: "detail",
			err:  &remote.NetworkError{Op: "undo", Status: 400, Detail: "No undo history available"},
			want: "undo: No undo history available (HTTP 400)",
		},
		{
			name: "status only",
			err:  &remote.NetworkError{Op: "upload", Status: 500},
			want: "upload: HTTP 500 Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

// holdingServer answers the first GET of path with the state it read on
// arrival, but only once released. Later requests pass straight through.
type holdingServer struct {
	*httptest.Server
	arrived chan struct{}
	release chan struct{}
	gets    atomic.Int32
}

func newHoldingServer(t *testing.T, fake *testhelpers.FakeService, path func() string) *holdingServer {
	t.Helper()
	h := &holdingServer{arrived: make(chan struct{}), release: make(chan struct{})}
	inner := testhelpers.Handler(fake)
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != path() {
			inner.ServeHTTP(w, r)
			return
		}
		if h.gets.Add(1) > 1 {
			inner.ServeHTTP(w, r)
			return
		}
		rec := httptest.NewRecorder()
		inner.ServeHTTP(rec, r)
		close(h.arrived)
		<-h.release
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	}))
	t.Cleanup(h.Close)
	t.Cleanup(func() {
		select {
		case <-h.release:
		default:
			close(h.release)
		}
	})
	return h
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestClient_FetchAfterMutationSendsItsOwnRequest(t *testing.T) {
	fake := testhelpers.NewFakeService()
	id := fake.Seed("doc.pdf", "P1", "P2", "P3")
	srv := newHoldingServer(t, fake, func() string { return "/api/pdf/" + id })
	client := remote.NewClient(srv.URL)
	ctx := context.Background()

	before := make(chan []byte, 1)
	go func() {
		data, _ := client.Fetch(ctx, id)
		before <- data
	}()
	waitFor(t, srv.arrived)

	_, err := client.DeletePage(ctx, id, 0)
	require.NoError(t, err)

	// Must not join the request still held with the old pages
	data, err := client.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P3"}, testhelpers.DecodeLabels(data))
	assert.Equal(t, int32(2), srv.gets.Load())

	close(srv.release)
	assert.Equal(t, []string{"P1", "P2", "P3"}, testhelpers.DecodeLabels(<-before))
}

func TestClient_UndoStatusAfterMutationIsFresh(t *testing.T) {
	fake := testhelpers.NewFakeService()
	id := fake.Seed("doc.pdf", "P1", "P2")
	srv := newHoldingServer(t, fake, func() string { return "/api/pdf/" + id + "/undo/status" })
	client := remote.NewClient(srv.URL)
	ctx := context.Background()

	before := make(chan bool, 1)
	go func() {
		can, _ := client.CanUndo(ctx, id)
		before <- can
	}()
	waitFor(t, srv.arrived)

	require.NoError(t, client.Reorder(ctx, id, 0, 1))

	can, err := client.CanUndo(ctx, id)
	require.NoError(t, err)
	assert.True(t, can)

	close(srv.release)
	assert.False(t, <-before)
}
