package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/pluqqy/pdfdeck/pkg/reflector"
)

const (
	tabLabelWidth = 24
	pageListWidth = 10
)

var logoStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("205")).
	Bold(true)

// renderHeader draws the title row: logo on the left, document summary on
// the right
func renderHeader(width int, view reflector.View, busy string) string {
	left := logoStyle.Render("▙▌ pdfdeck")
	if busy != "" {
		left += " " + busy
	}

	var right string
	if view.HasActive {
		right = fmt.Sprintf("%s  page %d/%d  %s",
			truncate.StringWithTail(view.Filename, uint(max(width/3, 8)), "…"),
			view.CurrentPage, view.PageCount, view.ZoomLabel)
	}
	right = HeaderStyle.Render(right)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1).
		Render(left + strings.Repeat(" ", gap) + right)
}

// renderTabs draws the tab strip, cut to width
func renderTabs(width int, tabs []reflector.Tab) string {
	if len(tabs) == 0 {
		return DescriptionStyle.Render(" no open documents")
	}

	parts := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := fmt.Sprintf("%d %s", i+1, truncate.StringWithTail(tab.Label, tabLabelWidth, "…"))
		if tab.IsActive {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, InactiveTabStyle.Render(label))
		}
	}
	strip := " " + strings.Join(parts, " ")
	return truncate.StringWithTail(strip, uint(max(width, 1)), "…")
}

// renderPageList draws page numbers with the current page highlighted,
// scrolled so the current page stays visible
func renderPageList(height int, pages []reflector.Page) string {
	if height < 1 {
		height = 1
	}
	current := 0
	for i, p := range pages {
		if p.IsCurrent {
			current = i
		}
	}
	start := 0
	if current >= height {
		start = current - height + 1
	}
	end := min(len(pages), start+height)

	lines := make([]string, 0, height)
	for _, p := range pages[start:end] {
		label := fmt.Sprintf(" %3d ", p.Number)
		if p.IsCurrent {
			lines = append(lines, SelectedStyle.Render("▸"+label))
		} else {
			lines = append(lines, NormalStyle.Render(" "+label))
		}
	}
	return lipgloss.NewStyle().Width(pageListWidth).Height(height).Render(strings.Join(lines, "\n"))
}

type toolbarButton struct {
	key     string
	label   string
	enabled bool
}

// renderToolbar lists the actions with their keys; unavailable ones are
// struck through
func renderToolbar(width int, b reflector.Buttons, hasActive bool) string {
	buttons := []toolbarButton{
		{"o", "open", true},
		{"i", "attach", true},
		{"K", "up", b.MoveUp},
		{"J", "down", b.MoveDown},
		{"d", "delete", b.Delete},
		{"a", "add", b.AddPages},
		{"m", "merge", b.Merge},
		{"z", "undo", b.Undo},
		{"+", "zoom in", b.ZoomIn},
		{"-", "zoom out", b.ZoomOut},
		{"s", "save", b.Save},
		{"S", "save as", b.SaveAs},
		{"c", "copy id", hasActive},
		{"x", "close", hasActive},
		{"q", "quit", true},
	}

	parts := make([]string, len(buttons))
	for i, btn := range buttons {
		text := btn.key + " " + btn.label
		if btn.enabled {
			parts[i] = EnabledButtonStyle.Render(btn.key) + " " + NormalStyle.Render(btn.label)
		} else {
			parts[i] = DisabledButtonStyle.Render(text)
		}
	}
	return lipgloss.NewStyle().Width(max(width-2, 1)).PaddingLeft(1).Render(strings.Join(parts, "  "))
}
