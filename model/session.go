package model

import (
	"context"
	"sync"

	"companion/config"
)

// Session holds the conversation store and message thread for one logged in
// user. It is created after login and discarded with Close on logout.
//
// Session keeps the thread pointed at the store's selection: every operation
// that can move the selection re-selects the thread afterwards.
type Session struct {
	conversations *ConversationStore
	thread        *ThreadController

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	unsubscribe []func()

	changes broadcaster[struct{}]
}

// NewSession creates a session backed by gw.
func NewSession(gw Gateway, opts ...StoreOption) *Session {
	return NewSessionWith(NewConversationStore(gw, opts...), NewThreadController(gw))
}

// NewSessionWith binds an existing store and controller.
func NewSessionWith(conversations *ConversationStore, thread *ThreadController) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conversations: conversations,
		thread:        thread,
		ctx:           ctx,
		cancel:        cancel,
	}

	s.unsubscribe = append(s.unsubscribe,
		conversations.Subscribe(func(ConversationsSnapshot) { s.changes.notify(struct{}{}) }),
		thread.Subscribe(func(ThreadSnapshot) { s.changes.notify(struct{}{}) }),
	)

	return s
}

// Conversations returns the session's conversation store.
func (s *Session) Conversations() *ConversationStore {
	return s.conversations
}

// Thread returns the session's message thread controller.
func (s *Session) Thread() *ThreadController {
	return s.thread
}

// Context is cancelled when the session is closed.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Subscribe registers fn to be called after any change to the store or thread.
func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	return s.changes.subscribe(func(struct{}) { fn() })
}

// Close ends the session: subscribers are dropped, in-flight calls started
// through the session's context are cancelled and later operations fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	s.changes.clear()
	s.cancel()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Session] Closed")
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LoadConversations reloads the collection and loads the selected thread.
func (s *Session) LoadConversations(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.conversations.Load(ctx); err != nil {
		return err
	}
	return s.syncThread(ctx)
}

// CreateConversation creates a conversation and opens its (empty) thread.
func (s *Session) CreateConversation(ctx context.Context) (Conversation, error) {
	if s.isClosed() {
		return Conversation{}, ErrSessionClosed
	}
	created, err := s.conversations.Create(ctx)
	if err != nil {
		return Conversation{}, err
	}
	return created, s.syncThread(ctx)
}

// RenameConversation renames a conversation. The thread is not affected.
func (s *Session) RenameConversation(ctx context.Context, id ConversationID, name string) (Conversation, error) {
	if s.isClosed() {
		return Conversation{}, ErrSessionClosed
	}
	return s.conversations.Rename(ctx, id, name)
}

// DeleteConversation deletes a conversation and follows the selection if it moved.
func (s *Session) DeleteConversation(ctx context.Context, id ConversationID) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.conversations.Delete(ctx, id); err != nil {
		return err
	}
	return s.syncThread(ctx)
}

// SelectConversation selects id (or clears with NoConversation) and loads its thread.
func (s *Session) SelectConversation(ctx context.Context, id ConversationID) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.conversations.Select(id); err != nil {
		return err
	}
	return s.syncThread(ctx)
}

// Send sends content to the selected conversation.
func (s *Session) Send(ctx context.Context, content string) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.thread.Send(ctx, content)
}

// ReloadThread refetches the selected conversation's messages.
func (s *Session) ReloadThread(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.thread.Reload(ctx)
}

func (s *Session) syncThread(ctx context.Context) error {
	return s.thread.SelectConversation(ctx, s.conversations.Snapshot().Selected)
}
