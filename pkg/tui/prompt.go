package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

// PromptModel asks one question with a text input
type PromptModel struct {
	input    textinput.Model
	question session.Question
	active   bool
	width    int
}

// NewPrompt creates an inactive prompt
func NewPrompt() *PromptModel {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 50

	return &PromptModel{input: ti}
}

// Show activates the prompt for q, prefilled with its default
func (p *PromptModel) Show(q session.Question) tea.Cmd {
	p.question = q
	p.active = true
	p.input.SetValue(q.Default)
	p.input.CursorEnd()
	return p.input.Focus()
}

// Hide deactivates the prompt
func (p *PromptModel) Hide() {
	p.active = false
	p.input.Blur()
	p.input.SetValue("")
}

// Active returns whether the prompt is shown
func (p *PromptModel) Active() bool {
	return p.active
}

// Value returns the typed answer
func (p *PromptModel) Value() string {
	return p.input.Value()
}

// SetWidth sets the width for the prompt box
func (p *PromptModel) SetWidth(width int) {
	p.width = width
	// borders, padding and outer padding
	p.input.Width = max(width-8, 10)
}

// Update handles tea messages for the input
func (p *PromptModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// View renders the prompt
func (p *PromptModel) View() string {
	if !p.active {
		return ""
	}

	title := HeaderStyle.Render(p.question.Title)
	prompt := NormalStyle.Render(p.question.Prompt)
	hint := DescriptionStyle.Render("enter to confirm · esc to cancel")
	body := lipgloss.JoinVertical(lipgloss.Left, title, prompt, p.input.View(), hint)

	box := InputStyle
	if p.width > 4 {
		box = box.Width(p.width - 4)
	}
	return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1).Render(box.Render(body))
}
