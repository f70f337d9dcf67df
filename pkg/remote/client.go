// Package remote is the HTTP client for the document service that performs
// the actual PDF manipulation. The service is the sole source of truth for
// page counts and ordering.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pluqqy/pdfdeck/pkg/models"
)

// Client talks to the document service
type Client struct {
	*http.Client // [Embedded]
	BaseURL      string

	logger *slog.Logger
	group  singleflight.Group

	mu        sync.Mutex
	revisions map[string]uint64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.Client = hc
	}
}

// WithTimeout sets a timeout on every request; zero keeps requests unbounded
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.Client.Timeout = d
	}
}

// WithLogger sets the logger for request diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		Client:  &http.Client{},
		BaseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// changed marks fileID as mutated. It is called when a mutating request
// starts and again when it ends, so reads never share a request that was
// sent before the change.
func (c *Client) changed(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revisions == nil {
		c.revisions = make(map[string]uint64)
	}
	c.revisions[fileID]++
}

// readKey names a read of fileID at its current revision for coalescing
func (c *Client) readKey(op, fileID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s:%s@%d", op, fileID, c.revisions[fileID])
}

func (c *Client) pdfURL(fileID string, parts ...string) string {
	u := c.BaseURL + "/api/pdf/" + url.PathEscape(fileID)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// Upload sends a document as multipart field "file"
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	const op = "upload"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("failed to read %s: %w", filename, err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result models.UploadResult
	if err := c.doJSON(op, req, &result); err != nil {
		return nil, err
	}
	if result.Filename == "" {
		result.Filename = filename
	}
	c.logger.Debug("Uploaded document.", "file", result.FileID, "pages", result.PageCount, "name", result.Filename)
	return &result, nil
}

// Fetch returns the current document bytes. Concurrent fetches of the same
// file share one request unless a mutation of the file started in between.
func (c *Client) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	v, err, _ := c.group.Do(c.readKey("fetch", fileID), func() (interface{}, error) {
		return c.getBytes(ctx, "fetch", c.pdfURL(fileID))
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Download returns the document bytes for saving
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	return c.getBytes(ctx, "download", c.pdfURL(fileID, "download"))
}

// Info returns the page count and stored filename
func (c *Client) Info(ctx context.Context, fileID string) (*models.DocumentInfo, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, c.pdfURL(fileID, "info"), nil)
	if err != nil {
		return nil, &NetworkError{Op: "info", Err: err}
	}
	var info models.DocumentInfo
	if err := c.doJSON("info", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AddRange inserts pages of another uploaded document and returns the new page count
func (c *Client) AddRange(ctx context.Context, fileID string, body models.AddRangeRequest) (int, error) {
	c.changed(fileID)
	defer c.changed(fileID)

	req, err := c.newJSONRequest(ctx, http.MethodPost, c.pdfURL(fileID, "pages", "add-range"), body)
	if err != nil {
		return 0, &NetworkError{Op: "add pages", Err: err}
	}
	var result models.PageCountResult
	if err := c.doJSON("add pages", req, &result); err != nil {
		return 0, err
	}
	return result.PageCount, nil
}

// Reorder asks the service to move page from to position to (zero-based)
func (c *Client) Reorder(ctx context.Context, fileID string, from, to int) error {
	c.changed(fileID)
	defer c.changed(fileID)

	req, err := c.newJSONRequest(ctx, http.MethodPost, c.pdfURL(fileID, "pages", "reorder"), models.ReorderRequest{From: from, To: to})
	if err != nil {
		return &NetworkError{Op: "move page", Err: err}
	}
	return c.doJSON("move page", req, nil)
}

// DeletePage removes the zero-based page and returns the new page count
func (c *Client) DeletePage(ctx context.Context, fileID string, index int) (int, error) {
	c.changed(fileID)
	defer c.changed(fileID)

	req, err := c.newJSONRequest(ctx, http.MethodDelete, c.pdfURL(fileID, "pages", strconv.Itoa(index)), nil)
	if err != nil {
		return 0, &NetworkError{Op: "delete page", Err: err}
	}
	var result models.PageCountResult
	if err := c.doJSON("delete page", req, &result); err != nil {
		return 0, err
	}
	return result.PageCount, nil
}

// Undo reverts the last mutation and returns the restored page count
func (c *Client) Undo(ctx context.Context, fileID string) (int, error) {
	c.changed(fileID)
	defer c.changed(fileID)

	req, err := c.newJSONRequest(ctx, http.MethodPost, c.pdfURL(fileID, "undo"), nil)
	if err != nil {
		return 0, &NetworkError{Op: "undo", Err: err}
	}
	var result models.PageCountResult
	if err := c.doJSON("undo", req, &result); err != nil {
		return 0, err
	}
	return result.PageCount, nil
}

// UndoStatus reports whether the service holds undo history for the file.
// It is coalesced like Fetch.
func (c *Client) UndoStatus(ctx context.Context, fileID string) (*models.UndoStatus, error) {
	v, err, _ := c.group.Do(c.readKey("undo-status", fileID), func() (interface{}, error) {
		req, err := c.newJSONRequest(ctx, http.MethodGet, c.pdfURL(fileID, "undo", "status"), nil)
		if err != nil {
			return nil, &NetworkError{Op: "undo status", Err: err}
		}
		var status models.UndoStatus
		if err := c.doJSON("undo status", req, &status); err != nil {
			return nil, err
		}
		return &status, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UndoStatus), nil
}

// CanUndo is UndoStatus reduced to the flag
func (c *Client) CanUndo(ctx context.Context, fileID string) (bool, error) {
	status, err := c.UndoStatus(ctx, fileID)
	if err != nil {
		return false, err
	}
	return status.CanUndo, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, u string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends req and decodes a 2xx body into out (skipped when out is nil)
func (c *Client) doJSON(op string, req *http.Request, out interface{}) error {
	res, err := c.Do(req)
	if err != nil {
		c.logger.Warn("Request failed.", "op", op, "url", req.URL.String(), "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer c.closeBody(res)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.statusError(op, res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: res.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) getBytes(ctx context.Context, op, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/pdf")

	res, err := c.Do(req)
	if err != nil {
		c.logger.Warn("Request failed.", "op", op, "url", u, "error", err)
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer c.closeBody(res)

	if res.StatusCode != http.StatusOK {
		return nil, c.statusError(op, res)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Status: res.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return data, nil
}

func (c *Client) statusError(op string, res *http.Response) error {
	netErr := &NetworkError{Op: op, Status: res.StatusCode}
	data, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err == nil && len(data) > 0 {
		var body models.ErrorBody
		if json.Unmarshal(data, &body) == nil {
			netErr.Detail = body.Detail
		}
	}
	c.logger.Warn("Service returned an error.", "op", op, "status", res.StatusCode, "detail", netErr.Detail)
	return netErr
}

func (c *Client) closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		c.logger.Warn("Failed to close response body.", "error", err)
	}
}
