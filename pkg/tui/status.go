package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

// StatusFeedback represents a temporary status message
type StatusFeedback struct {
	Message   string
	Icon      string
	ShowUntil time.Time
	Type      StatusType
}

// StatusType represents the type of status message
type StatusType int

const (
	StatusTypeSuccess StatusType = iota
	StatusTypeWarning
	StatusTypeError
	StatusTypeInfo
)

// StatusManager manages temporary status messages. Errors stay up until
// dismissed; everything else expires.
type StatusManager struct {
	CurrentStatus   *StatusFeedback
	DefaultDuration time.Duration
	seq             int
}

// NewStatusManager creates a new status manager
func NewStatusManager() *StatusManager {
	return &StatusManager{
		DefaultDuration: 3 * time.Second,
	}
}

// ClearStatusMsg is sent to clear the status. Seq identifies the status it
// was scheduled for, so a newer status survives an older timer.
type ClearStatusMsg struct {
	Seq int
}

// ShowFeedback displays a status message with an icon
func (sm *StatusManager) ShowFeedback(icon, message string, statusType StatusType) tea.Cmd {
	sm.seq++
	sm.CurrentStatus = &StatusFeedback{
		Message: message,
		Icon:    icon,
		Type:    statusType,
	}
	if statusType == StatusTypeError {
		return nil
	}

	sm.CurrentStatus.ShowUntil = time.Now().Add(sm.DefaultDuration)
	seq := sm.seq
	return tea.Tick(sm.DefaultDuration, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

// ShowNotice shows a notice from a user flow
func (sm *StatusManager) ShowNotice(n session.Notice) tea.Cmd {
	switch n.Level {
	case session.NoticeSuccess:
		return sm.ShowFeedback("✓", n.Message, StatusTypeSuccess)
	case session.NoticeWarning:
		return sm.ShowFeedback("⚠", n.Message, StatusTypeWarning)
	case session.NoticeError:
		return sm.ShowFeedback("×", n.Message, StatusTypeError)
	default:
		return sm.ShowFeedback("ℹ", n.Message, StatusTypeInfo)
	}
}

// HandleClear clears the status if msg belongs to it
func (sm *StatusManager) HandleClear(msg ClearStatusMsg) {
	if msg.Seq == sm.seq {
		sm.CurrentStatus = nil
	}
}

// Clear removes the current status
func (sm *StatusManager) Clear() {
	sm.CurrentStatus = nil
}

// IsBlocking reports whether an error is waiting to be dismissed
func (sm *StatusManager) IsBlocking() bool {
	return sm.CurrentStatus != nil && sm.CurrentStatus.Type == StatusTypeError
}

// IsActive checks if a status is currently showing
func (sm *StatusManager) IsActive() bool {
	if sm.CurrentStatus == nil {
		return false
	}
	if !sm.CurrentStatus.ShowUntil.IsZero() && time.Now().After(sm.CurrentStatus.ShowUntil) {
		sm.CurrentStatus = nil
		return false
	}
	return true
}

// GetStatus returns the current status message if active
func (sm *StatusManager) GetStatus() (string, bool) {
	if !sm.IsActive() {
		return "", false
	}
	return fmt.Sprintf("%s %s", sm.CurrentStatus.Icon, sm.CurrentStatus.Message), true
}

// View renders the status wrapped to width
func (sm *StatusManager) View(width int) string {
	text, ok := sm.GetStatus()
	if !ok {
		return ""
	}
	if sm.IsBlocking() {
		text += "  (esc to dismiss)"
	}
	if width > 4 {
		text = wordwrap.String(text, width-2)
	}
	return statusStyle(sm.CurrentStatus.Type).Render(text)
}
