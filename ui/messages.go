package ui

import (
	"companion/gateway"
	"companion/model"
)

// Message type aliases - the messages themselves live next to the commands
// that produce them.
type stateChangedMsg = model.StateChangedMsg
type conversationsLoadedMsg = model.ConversationsLoadedMsg
type conversationCreatedMsg = model.ConversationCreatedMsg
type conversationRenamedMsg = model.ConversationRenamedMsg
type conversationDeletedMsg = model.ConversationDeletedMsg
type conversationSelectedMsg = model.ConversationSelectedMsg
type messageSentMsg = model.MessageSentMsg
type threadLoadedMsg = model.ThreadLoadedMsg
type markdownRenderedMsg = model.MarkdownRenderedMsg
type flashTickMsg = model.FlashTickMsg

type loggedInMsg = gateway.LoggedInMsg
type registeredMsg = gateway.RegisteredMsg
type fineTuneStartedMsg = gateway.FineTuneStartedMsg
type pingMsg = gateway.PingMsg

// exportedMsg reports the result of writing the current thread to disk.
type exportedMsg struct {
	path string
	err  error
}

// loggedOutMsg asks the root model to drop the session and show the login
// screen, optionally explaining why.
type loggedOutMsg struct {
	reason string
}
