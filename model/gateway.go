package model

import "context"

// Gateway is the remote chat service contract consumed by the stores.
//
// This interface is defined in the model package (not the gateway package) so the
// HTTP client can import model types without a cycle. Implementations must return
// *TransportError for every failure.
type Gateway interface {
	// ListConversations returns the user's conversations in gateway order.
	ListConversations(ctx context.Context) ([]Conversation, error)

	// CreateConversation asks the gateway for a new, empty conversation.
	CreateConversation(ctx context.Context) (Conversation, error)

	// RenameConversation persists a new name and returns the updated record.
	RenameConversation(ctx context.Context, id ConversationID, name string) (Conversation, error)

	// DeleteConversation removes the conversation and its messages.
	DeleteConversation(ctx context.Context, id ConversationID) error

	// ListMessages returns the thread, oldest first.
	ListMessages(ctx context.Context, id ConversationID) ([]Message, error)

	// SendMessage posts user content and returns only the generated reply.
	SendMessage(ctx context.Context, id ConversationID, content string) (Message, error)
}
