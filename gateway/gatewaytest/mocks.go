// Package gatewaytest provides gateway doubles: a scriptable MockGateway for
// unit tests and an HTTP dev gateway for integration tests and local runs.
package gatewaytest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"companion/model"
)

// MockGateway implements model.Gateway for testing. Each method delegates to
// its Func field; the defaults keep an in-memory collection.
type MockGateway struct {
	// Configurable responses
	ListConversationsFunc  func(ctx context.Context) ([]model.Conversation, error)
	CreateConversationFunc func(ctx context.Context) (model.Conversation, error)
	RenameConversationFunc func(ctx context.Context, id model.ConversationID, name string) (model.Conversation, error)
	DeleteConversationFunc func(ctx context.Context, id model.ConversationID) error
	ListMessagesFunc       func(ctx context.Context, id model.ConversationID) ([]model.Message, error)
	SendMessageFunc        func(ctx context.Context, id model.ConversationID, content string) (model.Message, error)

	// State
	mu            sync.Mutex
	conversations []model.Conversation
	messages      map[model.ConversationID][]model.Message
	nextID        int64
	calls         []Call
}

// Call records one gateway invocation.
type Call struct {
	Method         string
	ConversationID model.ConversationID
	Arg            string
}

var _ model.Gateway = (*MockGateway)(nil)

// NewMockGateway creates a mock holding conversations (gateway order).
func NewMockGateway(conversations ...model.Conversation) *MockGateway {
	mock := &MockGateway{
		conversations: append([]model.Conversation(nil), conversations...),
		messages:      make(map[model.ConversationID][]model.Message),
		nextID:        100,
	}
	mock.ListConversationsFunc = mock.defaultListConversations
	mock.CreateConversationFunc = mock.defaultCreateConversation
	mock.RenameConversationFunc = mock.defaultRenameConversation
	mock.DeleteConversationFunc = mock.defaultDeleteConversation
	mock.ListMessagesFunc = mock.defaultListMessages
	mock.SendMessageFunc = mock.defaultSendMessage
	return mock
}

// SetMessages replaces the stored thread of id.
func (m *MockGateway) SetMessages(id model.ConversationID, messages ...model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = append([]model.Message(nil), messages...)
}

// Calls returns every recorded call in order.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how often method was called.
func (m *MockGateway) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockGateway) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *MockGateway) newID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

func (m *MockGateway) defaultListConversations(ctx context.Context) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Conversation(nil), m.conversations...), nil
}

func (m *MockGateway) defaultCreateConversation(ctx context.Context) (model.Conversation, error) {
	created := model.Conversation{
		ID:        model.ConversationID(m.newID()),
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.conversations = append([]model.Conversation{created}, m.conversations...)
	m.mu.Unlock()
	return created, nil
}

func (m *MockGateway) defaultRenameConversation(ctx context.Context, id model.ConversationID, name string) (model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			m.conversations[i].Name = name
			return m.conversations[i], nil
		}
	}
	return model.Conversation{}, NotFound("rename conversation")
}

func (m *MockGateway) defaultDeleteConversation(ctx context.Context, id model.ConversationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			m.conversations = append(m.conversations[:i], m.conversations[i+1:]...)
			delete(m.messages, id)
			return nil
		}
	}
	return NotFound("delete conversation")
}

func (m *MockGateway) defaultListMessages(ctx context.Context, id model.ConversationID) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.messages[id]...), nil
}

func (m *MockGateway) defaultSendMessage(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
	userID := m.newID()
	replyID := m.newID()
	now := time.Now()

	reply := model.Message{
		ID:             strconv.FormatInt(replyID, 10),
		ConversationID: id,
		Content:        "Mock reply to: " + content,
		IsAI:           true,
		CreatedAt:      now,
	}

	m.mu.Lock()
	m.messages[id] = append(m.messages[id],
		model.Message{ID: strconv.FormatInt(userID, 10), ConversationID: id, Content: content, CreatedAt: now},
		reply,
	)
	m.mu.Unlock()
	return reply, nil
}

func (m *MockGateway) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	m.record(Call{Method: "ListConversations"})
	return m.ListConversationsFunc(ctx)
}

func (m *MockGateway) CreateConversation(ctx context.Context) (model.Conversation, error) {
	m.record(Call{Method: "CreateConversation"})
	return m.CreateConversationFunc(ctx)
}

func (m *MockGateway) RenameConversation(ctx context.Context, id model.ConversationID, name string) (model.Conversation, error) {
	m.record(Call{Method: "RenameConversation", ConversationID: id, Arg: name})
	return m.RenameConversationFunc(ctx, id, name)
}

func (m *MockGateway) DeleteConversation(ctx context.Context, id model.ConversationID) error {
	m.record(Call{Method: "DeleteConversation", ConversationID: id})
	return m.DeleteConversationFunc(ctx, id)
}

func (m *MockGateway) ListMessages(ctx context.Context, id model.ConversationID) ([]model.Message, error) {
	m.record(Call{Method: "ListMessages", ConversationID: id})
	return m.ListMessagesFunc(ctx, id)
}

func (m *MockGateway) SendMessage(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
	m.record(Call{Method: "SendMessage", ConversationID: id, Arg: content})
	return m.SendMessageFunc(ctx, id, content)
}

// NotFound is the error the gateway returns for a missing conversation.
func NotFound(op string) *model.TransportError {
	return HTTPError(op, 404, "Conversation not found")
}

// HTTPError builds a gateway error response with a FastAPI style body.
func HTTPError(op string, status int, detail string) *model.TransportError {
	return &model.TransportError{
		Op:      op,
		Kind:    model.KindHTTP,
		Status:  status,
		Payload: []byte(fmt.Sprintf(`{"detail":%q}`, detail)),
		Err:     fmt.Errorf("unexpected status %d", status),
	}
}

// NetworkError is a failure without a response.
func NetworkError(op string) *model.TransportError {
	return &model.TransportError{Op: op, Kind: model.KindNetwork, Err: fmt.Errorf("connection refused")}
}

// Gate blocks callers until released. Use it inside a Func field to hold a
// call open while the test changes state.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Wait is called from the blocked call.
func (g *Gate) Wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered blocks until a call reached Wait.
func (g *Gate) Entered(t testing.TB) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for gateway call")
	}
}

// Release unblocks all current and future waiters.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}
