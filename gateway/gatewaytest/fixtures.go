package gatewaytest

import (
	"strconv"
	"time"

	"companion/model"
)

// fixtureTime is a fixed creation time for fixtures.
var fixtureTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Conversation returns a named conversation fixture.
func Conversation(id int64, name string) model.Conversation {
	return model.Conversation{
		ID:        model.ConversationID(id),
		Name:      name,
		CreatedAt: fixtureTime.Add(time.Duration(id) * time.Minute),
	}
}

// Conversations returns unnamed conversations with the given ids, in order.
func Conversations(ids ...int64) []model.Conversation {
	out := make([]model.Conversation, 0, len(ids))
	for _, id := range ids {
		out = append(out, Conversation(id, ""))
	}
	return out
}

// UserMessage returns a persisted user message fixture.
func UserMessage(id int64, conversationID int64, content string) model.Message {
	return model.Message{
		ID:             strconv.FormatInt(id, 10),
		ConversationID: model.ConversationID(conversationID),
		Content:        content,
		CreatedAt:      fixtureTime.Add(time.Duration(id) * time.Second),
	}
}

// AIMessage returns a persisted assistant message fixture.
func AIMessage(id int64, conversationID int64, content string) model.Message {
	msg := UserMessage(id, conversationID, content)
	msg.IsAI = true
	return msg
}

// TestThread returns a short exchange for conversationID.
func TestThread(conversationID int64) []model.Message {
	return []model.Message{
		UserMessage(1, conversationID, "Hello, how are you?"),
		AIMessage(2, conversationID, "I'm doing well, thank you!"),
		UserMessage(3, conversationID, "Can you help me with a task?"),
	}
}
