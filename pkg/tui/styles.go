package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color constants
const (
	ColorActive   = "170" // Purple/magenta for active elements
	ColorInactive = "240" // Gray for inactive elements
	ColorSelected = "236" // Dark gray for background selection
	ColorNormal   = "245" // Light gray for normal text
	ColorDim      = "241"
	ColorWarning  = "214" // Orange/yellow for warnings
	ColorDanger   = "196" // Red for dangerous actions
	ColorSuccess  = "28"  // Green for success
	ColorWhite    = "255"
	ColorPrimary  = "33" // Blue for primary actions
)

var (
	ActiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorActive))

	InactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorInactive))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorActive)).
			Background(lipgloss.Color(ColorSelected)).
			Bold(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorNormal))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorDim))

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorDim))

	EmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)).
			Bold(true)

	// Tab strip
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWhite)).
			Background(lipgloss.Color(ColorActive)).
			Bold(true).
			Padding(0, 1)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorNormal)).
				Background(lipgloss.Color(ColorSelected)).
				Padding(0, 1)

	// Toolbar
	EnabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorPrimary)).
				Bold(true)

	DisabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorInactive)).
				Strikethrough(true)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorActive)).
			Padding(0, 1)
)

// statusStyle colors the status line by notice kind
func statusStyle(t StatusType) lipgloss.Style {
	style := lipgloss.NewStyle().Padding(0, 1)
	switch t {
	case StatusTypeSuccess:
		return style.Foreground(lipgloss.Color(ColorSuccess))
	case StatusTypeWarning:
		return style.Foreground(lipgloss.Color(ColorWarning))
	case StatusTypeError:
		return style.Foreground(lipgloss.Color(ColorDanger)).Bold(true)
	default:
		return style.Foreground(lipgloss.Color(ColorNormal))
	}
}
