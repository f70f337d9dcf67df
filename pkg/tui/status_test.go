package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

func TestStatusManager_ShowFeedback(t *testing.T) {
	sm := NewStatusManager()

	cmd := sm.ShowFeedback("✓", "Test message", StatusTypeSuccess)
	if cmd == nil {
		t.Error("ShowFeedback should return a command")
	}

	if sm.CurrentStatus == nil {
		t.Fatal("CurrentStatus should not be nil after ShowFeedback")
	}
	if sm.CurrentStatus.Message != "Test message" {
		t.Errorf("Expected message 'Test message', got '%s'", sm.CurrentStatus.Message)
	}
	if sm.CurrentStatus.Type != StatusTypeSuccess {
		t.Errorf("Expected type StatusTypeSuccess, got %v", sm.CurrentStatus.Type)
	}
}

func TestStatusManager_IsActive(t *testing.T) {
	sm := NewStatusManager()

	if sm.IsActive() {
		t.Error("StatusManager should not be active initially")
	}

	sm.ShowFeedback("✓", "Test", StatusTypeSuccess)
	if !sm.IsActive() {
		t.Error("StatusManager should be active after ShowFeedback")
	}

	sm.CurrentStatus.ShowUntil = time.Now().Add(-1 * time.Second)
	if sm.IsActive() {
		t.Error("StatusManager should not be active after expiration")
	}
}

func TestStatusManager_ErrorsBlockUntilCleared(t *testing.T) {
	sm := NewStatusManager()

	if cmd := sm.ShowNotice(session.Notice{Level: session.NoticeError, Message: "Failed to undo: No undo history available"}); cmd != nil {
		t.Error("errors should not schedule a clear")
	}
	if !sm.IsBlocking() {
		t.Fatal("error status should block")
	}
	if !strings.Contains(sm.View(80), "esc to dismiss") {
		t.Errorf("blocking status should mention dismissal, got %q", sm.View(80))
	}

	sm.Clear()
	if sm.IsActive() {
		t.Error("status should be gone after Clear")
	}
}

func TestStatusManager_StaleClearKeepsNewerStatus(t *testing.T) {
	sm := NewStatusManager()

	sm.ShowFeedback("✓", "first", StatusTypeSuccess)
	first := sm.seq
	sm.ShowFeedback("ℹ", "second", StatusTypeInfo)

	sm.HandleClear(ClearStatusMsg{Seq: first})
	if got, _ := sm.GetStatus(); got != "ℹ second" {
		t.Errorf("expected newer status to survive, got %q", got)
	}

	sm.HandleClear(ClearStatusMsg{Seq: sm.seq})
	if sm.IsActive() {
		t.Error("matching clear should remove the status")
	}
}

func TestStatusManager_ShowNoticeLevels(t *testing.T) {
	tests := []struct {
		level session.NoticeLevel
		want  StatusType
		icon  string
	}{
		{session.NoticeInfo, StatusTypeInfo, "ℹ"},
		{session.NoticeSuccess, StatusTypeSuccess, "✓"},
		{session.NoticeWarning, StatusTypeWarning, "⚠"},
		{session.NoticeError, StatusTypeError, "×"},
	}
	for _, tt := range tests {
		sm := NewStatusManager()
		sm.ShowNotice(session.Notice{Level: tt.level, Message: "m"})
		if sm.CurrentStatus.Type != tt.want || sm.CurrentStatus.Icon != tt.icon {
			t.Errorf("level %v: got type %v icon %q", tt.level, sm.CurrentStatus.Type, sm.CurrentStatus.Icon)
		}
	}
}

func TestStatusManager_ViewWraps(t *testing.T) {
	sm := NewStatusManager()
	sm.ShowFeedback("ℹ", "a fairly long message that will not fit", StatusTypeInfo)

	if lines := strings.Count(sm.View(20), "\n"); lines == 0 {
		t.Error("expected the status to wrap at narrow widths")
	}
}
