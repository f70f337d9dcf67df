package render

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
)

// PageSurface is one rendered page
type PageSurface struct {
	Page   int
	Width  int
	Height int
	Body   string
}

// Rasterizer draws a single page at the given effective scale
type Rasterizer interface {
	Rasterize(ctx context.Context, doc Document, page int, scale float64) (PageSurface, error)
}

const (
	minColumns = 10
	minRows    = 4
)

// BoxRasterizer draws each page as an outlined box sized from its geometry
type BoxRasterizer struct {
	// Points of page width per terminal column at scale 1
	PointsPerColumn float64
	// Points of page height per terminal row at scale 1
	PointsPerRow float64
	Style        lipgloss.Style
	LabelStyle   lipgloss.Style
}

// NewBoxRasterizer returns a rasterizer that draws US Letter as 34x22 cells
func NewBoxRasterizer() *BoxRasterizer {
	return &BoxRasterizer{
		PointsPerColumn: 18,
		PointsPerRow:    36,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Align(lipgloss.Center, lipgloss.Center),
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Rasterize implements Rasterizer
func (r *BoxRasterizer) Rasterize(ctx context.Context, doc Document, page int, scale float64) (PageSurface, error) {
	if err := ctx.Err(); err != nil {
		return PageSurface{}, err
	}
	w, h, err := doc.PageSize(page)
	if err != nil {
		return PageSurface{}, err
	}

	cols := int(math.Round(w * scale / r.PointsPerColumn))
	rows := int(math.Round(h * scale / r.PointsPerRow))
	cols = max(cols, minColumns)
	rows = max(rows, minRows)

	label := r.LabelStyle.Render(fmt.Sprintf("%d", page))
	// Width and Height exclude the border
	body := r.Style.Width(cols - 2).Height(rows - 2).Render(label)

	return PageSurface{
		Page:   page,
		Width:  lipgloss.Width(body),
		Height: lipgloss.Height(body),
		Body:   body,
	}, nil
}
