// Package render turns a decoded document into page surfaces, a few pages
// up front and the rest in the background.
package render

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is a decoded document handle. Pages are 1-based.
type Document interface {
	PageCount() int
	PageSize(page int) (width, height float64, err error)
}

// Decoder turns fetched document bytes into a Document
type Decoder interface {
	Decode(data []byte) (Document, error)
}

// PDFDecoder reads page geometry with pdfcpu
type PDFDecoder struct {
	conf *model.Configuration
}

// NewPDFDecoder creates a decoder with relaxed validation
func NewPDFDecoder() *PDFDecoder {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFDecoder{conf: conf}
}

// Decode implements Decoder
func (d *PDFDecoder) Decode(data []byte) (Document, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), d.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("failed to read document: no pages")
	}
	return &PDFDocument{dims: dims}, nil
}

// PDFDocument holds the media box of every page
type PDFDocument struct {
	dims []types.Dim
}

// PageCount implements Document
func (d *PDFDocument) PageCount() int {
	return len(d.dims)
}

// PageSize implements Document
func (d *PDFDocument) PageSize(page int) (float64, float64, error) {
	if page < 1 || page > len(d.dims) {
		return 0, 0, fmt.Errorf("page %d out of range 1-%d", page, len(d.dims))
	}
	dim := d.dims[page-1]
	return dim.Width, dim.Height, nil
}
