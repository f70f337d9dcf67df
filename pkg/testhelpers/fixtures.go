package testhelpers

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/pluqqy/pdfdeck/pkg/render"
)

// BytesSource is an in-memory upload source
type BytesSource struct {
	Filename string
	Data     []byte
}

// Name returns the upload filename
func (s BytesSource) Name() string { return s.Filename }

// Open returns a reader over the data
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// Doc builds an upload source with n labelled pages, e.g. Doc("X", 3) has pages X1..X3
func Doc(prefix string, n int) BytesSource {
	return BytesSource{
		Filename: prefix + ".pdf",
		Data:     EncodeLabels(Labels(prefix, n)),
	}
}

// LabelDocument is a decoded fake document
type LabelDocument struct {
	Labels []string
}

// PageCount returns the number of pages
func (d *LabelDocument) PageCount() int { return len(d.Labels) }

// PageSize reports US Letter for every page
func (d *LabelDocument) PageSize(page int) (float64, float64, error) {
	if page < 1 || page > len(d.Labels) {
		return 0, 0, fmt.Errorf("page %d out of range", page)
	}
	return 612, 792, nil
}

// LabelDecoder decodes the fake service's byte format
type LabelDecoder struct {
	mu    sync.Mutex
	calls int
}

// Decode implements render.Decoder
func (d *LabelDecoder) Decode(data []byte) (render.Document, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	labels := DecodeLabels(data)
	if len(labels) == 0 {
		return nil, fmt.Errorf("failed to decode document: no pages")
	}
	return &LabelDocument{Labels: labels}, nil
}

// Calls returns how many documents were decoded
func (d *LabelDecoder) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
