package model

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"companion/config"
)

// ProvisionalIDPrefix marks client-generated message IDs. Gateway IDs are numeric,
// so a provisional ID can never match a persisted message.
const ProvisionalIDPrefix = "tmp-"

// ThreadState is the load/send state of the message thread.
type ThreadState int

const (
	ThreadIdle ThreadState = iota
	ThreadLoading
	ThreadReady
	ThreadSending
)

func (s ThreadState) String() string {
	switch s {
	case ThreadIdle:
		return "idle"
	case ThreadLoading:
		return "loading"
	case ThreadReady:
		return "ready"
	case ThreadSending:
		return "sending"
	default:
		return "unknown"
	}
}

// ThreadSnapshot is an immutable copy of the thread state.
type ThreadSnapshot struct {
	ConversationID ConversationID
	State          ThreadState
	Messages       []Message
}

// Sending reports whether a send is in flight.
func (s ThreadSnapshot) Sending() bool {
	return s.State == ThreadSending
}

// ThreadOption configures a ThreadController.
type ThreadOption func(*ThreadController)

// WithIDGenerator replaces the provisional ID generator. The prefix is always added.
func WithIDGenerator(fn func() string) ThreadOption {
	return func(c *ThreadController) {
		c.newID = fn
	}
}

// WithClock replaces time.Now for provisional timestamps.
func WithClock(fn func() time.Time) ThreadOption {
	return func(c *ThreadController) {
		c.now = fn
	}
}

// ThreadController owns the message thread of the selected conversation and runs
// the optimistic send protocol.
//
// Every load and send records the generation it started in. A response that
// arrives after the generation moved on (another conversation was selected or the
// thread was reloaded) is dropped, so a slow response never overwrites newer state.
type ThreadController struct {
	gateway Gateway
	newID   func() string
	now     func() time.Time

	mu             sync.Mutex
	conversationID ConversationID
	state          ThreadState
	messages       []Message
	generation     uint64
	loadFailed     bool

	changes broadcaster[ThreadSnapshot]
}

// NewThreadController creates an idle controller backed by gw.
func NewThreadController(gw Gateway, opts ...ThreadOption) *ThreadController {
	c := &ThreadController{
		gateway: gw,
		newID:   uuid.NewString,
		now:     time.Now,
		state:   ThreadIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current thread.
func (c *ThreadController) Snapshot() ThreadSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. Snapshots
// arrive in commit order; one overtaken by a newer snapshot is skipped. fn runs
// on the committing goroutine and must not modify the same owner.
func (c *ThreadController) Subscribe(fn func(ThreadSnapshot)) (unsubscribe func()) {
	return c.changes.subscribe(fn)
}

// SelectConversation points the thread at id and fetches its messages.
// NoConversation empties the thread. Selecting the conversation that is already
// loaded is a no-op unless its last load failed.
func (c *ThreadController) SelectConversation(ctx context.Context, id ConversationID) error {
	c.mu.Lock()

	if id == NoConversation {
		c.generation++
		c.conversationID = NoConversation
		c.state = ThreadIdle
		c.messages = nil
		c.loadFailed = false
		snap, seq := c.commitLocked()
		c.mu.Unlock()

		c.changes.publish(seq, snap)
		return nil
	}

	if id == c.conversationID && c.state != ThreadIdle && !c.loadFailed {
		c.mu.Unlock()
		return nil
	}

	return c.loadAndUnlock(ctx, id)
}

// Reload refetches the current conversation. It does nothing while idle, loading
// or sending.
func (c *ThreadController) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.conversationID == NoConversation || c.state != ThreadReady {
		c.mu.Unlock()
		return nil
	}
	return c.loadAndUnlock(ctx, c.conversationID)
}

// loadAndUnlock must be called with c.mu held; it releases the lock before the
// gateway call.
func (c *ThreadController) loadAndUnlock(ctx context.Context, id ConversationID) error {
	c.generation++
	generation := c.generation
	c.conversationID = id
	c.state = ThreadLoading
	c.messages = nil
	c.loadFailed = false
	snap, seq := c.commitLocked()
	c.mu.Unlock()

	c.changes.publish(seq, snap)

	messages, err := c.gateway.ListMessages(ctx, id)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Thread] Discarding stale message list for conversation %s (err=%v)", id, err)
		}
		return nil
	}

	c.state = ThreadReady
	if err != nil {
		c.messages = nil
		c.loadFailed = true
		snap, seq = c.commitLocked()
		c.mu.Unlock()

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Thread] Loading conversation %s failed: %v", id, err)
		}
		c.changes.publish(seq, snap)
		return err
	}

	c.messages = make([]Message, len(messages))
	copy(c.messages, messages)
	snap, seq = c.commitLocked()
	c.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Thread] Loaded %d messages for conversation %s", len(messages), id)
	}
	c.changes.publish(seq, snap)
	return nil
}

// Send shows content immediately as a provisional user message, then posts it.
// On success the gateway's reply is appended and the user message is kept; on
// failure the provisional message is removed again.
//
// Only one send may be in flight per thread: calls made while sending (or
// loading) are ignored.
func (c *ThreadController) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return newValidationError("send", "message must not be empty")
	}

	c.mu.Lock()
	if c.conversationID == NoConversation {
		c.mu.Unlock()
		return newValidationError("send", "no conversation selected")
	}
	if c.state != ThreadReady {
		state := c.state
		c.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Thread] Ignoring send while %s", state)
		}
		return nil
	}

	id := c.conversationID
	generation := c.generation
	provisional := Message{
		ID:             ProvisionalIDPrefix + c.newID(),
		ConversationID: id,
		Content:        content,
		IsAI:           false,
		CreatedAt:      c.now(),
		Provisional:    true,
	}
	c.messages = append(c.messages, provisional)
	c.state = ThreadSending
	snap, seq := c.commitLocked()
	c.mu.Unlock()

	c.changes.publish(seq, snap)

	reply, err := c.gateway.SendMessage(ctx, id, content)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Thread] Discarding stale send response for conversation %s (err=%v)", id, err)
		}
		return nil
	}

	c.state = ThreadReady
	if err != nil {
		c.messages = removeMessage(c.messages, provisional.ID)
		snap, seq = c.commitLocked()
		c.mu.Unlock()

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Thread] Send to conversation %s failed, retracted %s: %v", id, provisional.ID, err)
		}
		c.changes.publish(seq, snap)
		return err
	}

	for i := range c.messages {
		if c.messages[i].ID == provisional.ID {
			c.messages[i].Provisional = false
		}
	}
	c.messages = append(c.messages, reply)
	snap, seq = c.commitLocked()
	c.mu.Unlock()

	c.changes.publish(seq, snap)
	return nil
}

func (c *ThreadController) commitLocked() (ThreadSnapshot, uint64) {
	return c.snapshotLocked(), c.changes.stamp()
}

func (c *ThreadController) snapshotLocked() ThreadSnapshot {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return ThreadSnapshot{
		ConversationID: c.conversationID,
		State:          c.state,
		Messages:       messages,
	}
}

func removeMessage(messages []Message, id string) []Message {
	filtered := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.ID != id {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
