package model

// StateChangedMsg is sent whenever the session's store or thread changed.
type StateChangedMsg struct{}

type ConversationsLoadedMsg struct {
	Err error
}

type ConversationCreatedMsg struct {
	Conversation Conversation
	Err          error
}

type ConversationRenamedMsg struct {
	Conversation Conversation
	Err          error
}

type ConversationDeletedMsg struct {
	ID  ConversationID
	Err error
}

type ConversationSelectedMsg struct {
	ID  ConversationID
	Err error
}

type MessageSentMsg struct {
	Err error
}

type ThreadLoadedMsg struct {
	Err error
}

type MarkdownRenderedMsg struct {
	MessageID string
	Rendered  string
}

type FlashTickMsg struct{}
