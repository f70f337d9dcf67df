package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmationConfig holds the configuration for a confirmation prompt
type ConfirmationConfig struct {
	Title       string
	Message     string
	Destructive bool // If true, Yes is red, No is green
	Width       int
}

// ConfirmationModel handles yes/no prompts
type ConfirmationModel struct {
	active    bool
	config    ConfirmationConfig
	onConfirm func() tea.Cmd
	onCancel  func() tea.Cmd
}

// NewConfirmation creates a new confirmation model
func NewConfirmation() *ConfirmationModel {
	return &ConfirmationModel{}
}

// Show activates the confirmation with the given configuration
func (m *ConfirmationModel) Show(config ConfirmationConfig, onConfirm, onCancel func() tea.Cmd) {
	m.active = true
	m.config = config
	m.onConfirm = onConfirm
	m.onCancel = onCancel
}

// Active returns whether the confirmation is currently shown
func (m *ConfirmationModel) Active() bool {
	return m.active
}

// Update handles key events for the confirmation
func (m *ConfirmationModel) Update(msg tea.KeyMsg) tea.Cmd {
	if !m.active {
		return nil
	}

	switch msg.String() {
	case "y", "Y":
		m.active = false
		if m.onConfirm != nil {
			return m.onConfirm()
		}
	case "n", "N", "esc":
		m.active = false
		if m.onCancel != nil {
			return m.onCancel()
		}
	}
	return nil
}

// View renders the confirmation dialog
func (m *ConfirmationModel) View() string {
	if !m.active {
		return ""
	}

	width := m.config.Width
	if width == 0 {
		width = 60
	}

	borderColor := ColorActive
	if m.config.Destructive {
		borderColor = ColorWarning
	}
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(width - 4)

	var body []string
	if m.config.Title != "" {
		body = append(body, HeaderStyle.Render(m.config.Title))
	}
	body = append(body, m.config.Message, "", formatConfirmOptions(m.config.Destructive))

	return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1).
		Render(border.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))
}

func formatConfirmOptions(destructive bool) string {
	yes := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Bold(true)
	no := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDanger)).Bold(true)
	if destructive {
		yes, no = no, yes
	}
	return fmt.Sprintf("[%s]es  [%s]o", yes.Render("y"), no.Render("n"))
}
