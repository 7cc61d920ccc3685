package model

import (
	"strconv"
	"time"
)

// ConversationID identifies a conversation on the gateway.
// Server-assigned IDs are always positive.
type ConversationID int64

// NoConversation is the empty selection.
const NoConversation ConversationID = 0

func (id ConversationID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Conversation is a chat thread owned by the logged in user
type Conversation struct {
	ID        ConversationID
	Name      string
	CreatedAt time.Time
}

// DisplayName returns the conversation name, or "Chat <id>" when the server has none.
func (c Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return "Chat " + c.ID.String()
}

// Message represents a chat message in the conversation
type Message struct {
	ID             string
	ConversationID ConversationID
	Content        string
	IsAI           bool
	CreatedAt      time.Time

	// Provisional marks a user message shown before the gateway confirmed the send.
	Provisional bool
}

// Role returns "assistant" or "user".
func (m Message) Role() string {
	if m.IsAI {
		return "assistant"
	}
	return "user"
}
