package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

// Flows run in command goroutines and block on prompts. The bridge hands
// each prompt to the event loop and the answer back.

type promptReply struct {
	value string
	ok    bool
}

type promptRequest struct {
	question session.Question
	confirm  bool
	reply    chan promptReply
}

// promptRequestMsg asks the user something on behalf of a flow
type promptRequestMsg promptRequest

// noticeMsg carries a notice from a flow
type noticeMsg session.Notice

// stateChangedMsg says the registry or the page buffer changed
type stateChangedMsg struct{}

type bridge struct {
	done     <-chan struct{}
	requests chan promptRequest
	notices  chan session.Notice
	changes  chan struct{}
}

func newBridge(done <-chan struct{}) *bridge {
	return &bridge{
		done:     done,
		requests: make(chan promptRequest),
		notices:  make(chan session.Notice, 16),
		changes:  make(chan struct{}, 1),
	}
}

func (b *bridge) ask(ctx context.Context, req promptRequest) promptReply {
	req.reply = make(chan promptReply, 1)
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return promptReply{}
	case <-b.done:
		return promptReply{}
	}
	select {
	case r := <-req.reply:
		return r
	case <-ctx.Done():
		return promptReply{}
	case <-b.done:
		return promptReply{}
	}
}

// Ask implements session.Prompter
func (b *bridge) Ask(ctx context.Context, q session.Question) (string, bool) {
	r := b.ask(ctx, promptRequest{question: q})
	return r.value, r.ok
}

// Confirm implements session.Prompter
func (b *bridge) Confirm(ctx context.Context, message string) bool {
	return b.ask(ctx, promptRequest{question: session.Question{Prompt: message}, confirm: true}).ok
}

// Notify implements session.Notifier
func (b *bridge) Notify(n session.Notice) {
	select {
	case b.notices <- n:
	case <-b.done:
	}
}

// signal records a change without blocking; changes coalesce
func (b *bridge) signal() {
	select {
	case b.changes <- struct{}{}:
	default:
	}
}

func (b *bridge) waitForPrompt() tea.Cmd {
	return func() tea.Msg {
		select {
		case req := <-b.requests:
			return promptRequestMsg(req)
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-b.notices:
			return noticeMsg(n)
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.changes:
			return stateChangedMsg{}
		case <-b.done:
			return nil
		}
	}
}
