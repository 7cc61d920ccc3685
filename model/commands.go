package model

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// The commands below run session operations off the bubbletea event loop. They
// all derive their context from the session, so Close cancels whatever is still
// in flight.

func (s *Session) LoadConversationsCmd() tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		return ConversationsLoadedMsg{Err: s.LoadConversations(ctx)}
	}
}

func (s *Session) CreateConversationCmd() tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		created, err := s.CreateConversation(ctx)
		return ConversationCreatedMsg{Conversation: created, Err: err}
	}
}

func (s *Session) RenameConversationCmd(id ConversationID, name string) tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		updated, err := s.RenameConversation(ctx, id, name)
		return ConversationRenamedMsg{Conversation: updated, Err: err}
	}
}

func (s *Session) DeleteConversationCmd(id ConversationID) tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		return ConversationDeletedMsg{ID: id, Err: s.DeleteConversation(ctx, id)}
	}
}

func (s *Session) SelectConversationCmd(id ConversationID) tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		return ConversationSelectedMsg{ID: id, Err: s.SelectConversation(ctx, id)}
	}
}

func (s *Session) SendCmd(content string) tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		return MessageSentMsg{Err: s.Send(ctx, content)}
	}
}

func (s *Session) ReloadThreadCmd() tea.Cmd {
	ctx := s.ctx
	return func() tea.Msg {
		return ThreadLoadedMsg{Err: s.ReloadThread(ctx)}
	}
}

// WaitForChange blocks until the session reports a change (or ctx ends) and
// returns StateChangedMsg. Re-issue it after every StateChangedMsg to keep
// listening.
func WaitForChange(ctx context.Context, changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changes:
			return StateChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Changes returns a channel that receives a value after session changes. Bursts
// are coalesced: a pending notification is not duplicated.
func (s *Session) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.Subscribe(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch
}

// FlashTick schedules the end of a transient status message.
func FlashTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return FlashTickMsg{}
	})
}
