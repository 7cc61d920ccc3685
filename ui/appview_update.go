package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"companion/config"
	"companion/gateway"
	"companion/model"
	"companion/storage"
)

const highlightFlashes = 6

func (a AppView) Update(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		widthChanged := msg.Width != a.width
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.ready = true

		if widthChanged {
			clear(a.rendered)
			clear(a.rendering)
		}
		a.updateViewportContent(false)
		return a, a.pendingRenders()

	case stateChangedMsg:
		a.refresh()
		return a, tea.Batch(
			model.WaitForChange(a.session.Context(), a.changes),
			a.pendingRenders(),
		)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.busy() {
			a.updateViewportContent(a.thread.Sending())
		}
		return a, cmd

	case markdownRenderedMsg:
		delete(a.rendering, msg.MessageID)
		a.rendered[msg.MessageID] = msg.Rendered
		a.updateViewportContent(false)
		return a, nil

	case flashTickMsg:
		if a.highlightFlashCount > 0 {
			a.highlightFlashCount--
			a.updateViewportContent(false)
			if a.highlightFlashCount > 0 {
				return a, model.FlashTick(250 * time.Millisecond)
			}
		}
		a.highlightedMessageID = ""
		return a, nil

	case conversationsLoadedMsg:
		return a.handleResult(msg.Err, "")

	case conversationCreatedMsg:
		if msg.Err == nil {
			a.focus = focusInput
			a.input.Focus()
		}
		return a.handleResult(msg.Err, "Started a new conversation")

	case conversationRenamedMsg:
		if msg.Err != nil {
			return a.handleResult(msg.Err, "")
		}
		return a.handleResult(nil, fmt.Sprintf("Renamed to %q", msg.Conversation.DisplayName()))

	case conversationDeletedMsg:
		return a.handleResult(msg.Err, "Conversation deleted")

	case conversationSelectedMsg:
		return a.handleResult(msg.Err, "")

	case threadLoadedMsg:
		return a.handleResult(msg.Err, "")

	case messageSentMsg:
		if msg.Err != nil && model.KindOf(msg.Err) == model.ErrorKindTransport && a.input.Value() == "" {
			// Give the retracted text back so it can be resent.
			a.input.SetValue(a.lastSent)
			a.input.CursorEnd()
		}
		a.lastSent = ""
		return a.handleResult(msg.Err, "")

	case exportedMsg:
		if msg.err != nil {
			a.setStatus("Export failed: "+msg.err.Error(), true)
			return a, nil
		}
		a.setStatus("Exported to "+msg.path, false)
		return a, nil

	case fineTuneStartedMsg:
		a.fineTuning = false
		if msg.Err != nil {
			return a.handleResult(msg.Err, "")
		}
		a.setStatus(msg.Message, false)
		return a, nil

	case pingMsg:
		if msg.Err != nil {
			a.setStatus("Gateway unhealthy: "+describeError(msg.Err), true)
			return a, nil
		}
		a.setStatus("Gateway is healthy", false)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// refresh pulls fresh snapshots from the session and re-renders.
func (a *AppView) refresh() {
	previousThread := a.thread
	a.conversations = a.session.Conversations().Snapshot()
	a.thread = a.session.Thread().Snapshot()

	if a.filterMode {
		a.filtered = filterConversations(a.conversations.Conversations, a.filterInput.Value())
		if a.listIdx >= len(a.filtered) {
			a.listIdx = max(len(a.filtered)-1, 0)
		}
	} else if idx := a.conversations.IndexOf(a.conversations.Selected); idx >= 0 {
		a.listIdx = idx
	} else {
		a.listIdx = 0
	}

	if a.renameMode && a.conversations.IndexOf(a.renameID) < 0 {
		a.renameMode = false
		a.renameInput.Blur()
	}

	grew := a.thread.ConversationID != previousThread.ConversationID ||
		len(a.thread.Messages) != len(previousThread.Messages)
	a.updateViewportContent(grew)
}

// handleResult shows the outcome of a session command. A rejected token ends
// the session.
func (a AppView) handleResult(err error, success string) (AppView, tea.Cmd) {
	if err == nil {
		if success != "" {
			a.setStatus(success, false)
		}
		return a, nil
	}

	if isUnauthorized(err) {
		return a, func() tea.Msg {
			return loggedOutMsg{reason: "Your session expired. Please log in again."}
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Operation failed: %v", err)
	}
	a.setStatus(describeError(err), true)
	return a, nil
}

func (a AppView) handleKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	key := msg.String()

	// Modal layers first
	switch {
	case a.showHelp:
		if key == "esc" || key == "?" || key == "f1" || key == "q" {
			a.showHelp = false
		}
		return a, nil

	case a.confirmDelete != nil:
		switch key {
		case "y", "Y":
			id := a.confirmDelete.ID
			a.confirmDelete = nil
			return a, a.session.DeleteConversationCmd(id)
		case "n", "N", "esc":
			a.confirmDelete = nil
		}
		return a, nil

	case a.showMessageSearch:
		return a.handleMessageSearchKey(msg)

	case a.renameMode:
		return a.handleRenameKey(msg)

	case a.filterMode:
		return a.handleFilterKey(msg)
	}

	a.status = ""

	// Global keys
	switch key {
	case "ctrl+n":
		return a, a.session.CreateConversationCmd()

	case "ctrl+r":
		return a, a.session.ReloadThreadCmd()

	case "ctrl+f":
		if a.conversations.Selected == model.NoConversation {
			return a, nil
		}
		a.showMessageSearch = true
		a.messageSearchInput.SetValue("")
		a.messageSearchResults = nil
		a.selectedSearchIdx = 0
		return a, a.messageSearchInput.Focus()

	case "ctrl+e":
		return a, a.exportCmd()

	case "ctrl+t":
		if a.fineTuning {
			return a, nil
		}
		a.fineTuning = true
		a.setStatus("Starting fine-tuning...", false)
		return a, tea.Batch(gateway.FineTuneCmd(a.client), a.spinner.Tick)

	case "ctrl+p":
		return a, gateway.PingCmd(a.client)

	case "ctrl+l":
		return a, func() tea.Msg { return loggedOutMsg{} }

	case "alt+y":
		for i := len(a.thread.Messages) - 1; i >= 0; i-- {
			if a.thread.Messages[i].IsAI {
				if err := clipboard.WriteAll(a.thread.Messages[i].Content); err != nil {
					a.setStatus("Clipboard unavailable: "+err.Error(), true)
					return a, nil
				}
				a.setStatus("Copied last reply", false)
				return a, nil
			}
		}
		return a, nil

	case "alt+c":
		if err := clipboard.WriteAll(formatTranscript(a.thread.Messages)); err != nil {
			a.setStatus("Clipboard unavailable: "+err.Error(), true)
			return a, nil
		}
		a.setStatus("Copied conversation", false)
		return a, nil

	case "f1":
		a.showHelp = true
		return a, nil

	case "tab":
		if a.focus == focusInput {
			a.focus = focusList
			a.input.Blur()
			return a, nil
		}
		a.focus = focusInput
		return a, a.input.Focus()

	case "pgup", "alt+k":
		a.viewport.HalfPageUp()
		return a, nil

	case "pgdown", "alt+j":
		a.viewport.HalfPageDown()
		return a, nil
	}

	if a.focus == focusList {
		return a.handleListKey(msg)
	}
	return a.handleInputKey(msg)
}

func (a AppView) handleListKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	list := a.visibleConversations()

	switch msg.String() {
	case "j", "down":
		if a.listIdx < len(list)-1 {
			a.listIdx++
			return a, a.session.SelectConversationCmd(list[a.listIdx].ID)
		}
		return a, nil

	case "k", "up":
		if a.listIdx > 0 {
			a.listIdx--
			return a, a.session.SelectConversationCmd(list[a.listIdx].ID)
		}
		return a, nil

	case "n":
		return a, a.session.CreateConversationCmd()

	case "r":
		if a.listIdx >= len(list) {
			return a, nil
		}
		conv := list[a.listIdx]
		a.renameMode = true
		a.renameID = conv.ID
		a.renameInput.SetValue(conv.DisplayName())
		a.renameInput.CursorEnd()
		return a, a.renameInput.Focus()

	case "d", "x":
		if a.listIdx >= len(list) {
			return a, nil
		}
		conv := list[a.listIdx]
		a.confirmDelete = &conv
		return a, nil

	case "/":
		a.filterMode = true
		a.filterInput.SetValue("")
		a.filtered = a.conversations.Conversations
		return a, a.filterInput.Focus()

	case "enter", "l", "right":
		a.focus = focusInput
		return a, a.input.Focus()

	case "?":
		a.showHelp = true
		return a, nil
	}

	return a, nil
}

func (a AppView) handleInputKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if a.thread.Sending() {
			a.setStatus("Still waiting for the previous reply", false)
			return a, nil
		}
		content := a.input.Value()
		if strings.TrimSpace(content) != "" {
			a.input.Reset()
			a.lastSent = content
		}
		return a, a.session.SendCmd(content)

	case "esc":
		a.focus = focusList
		a.input.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a AppView) handleRenameKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.renameMode = false
		a.renameInput.Blur()
		return a, a.session.RenameConversationCmd(a.renameID, a.renameInput.Value())

	case "esc":
		a.renameMode = false
		a.renameInput.Blur()
		return a, nil

	case "alt+u":
		a.renameInput.SetValue("")
		return a, nil
	}

	var cmd tea.Cmd
	a.renameInput, cmd = a.renameInput.Update(msg)
	return a, cmd
}

func (a AppView) handleFilterKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.filterMode = false
		a.filterInput.Blur()
		a.listIdx = max(a.conversations.IndexOf(a.conversations.Selected), 0)
		return a, nil

	case "enter":
		a.filterMode = false
		a.filterInput.Blur()
		if a.listIdx < len(a.filtered) {
			id := a.filtered[a.listIdx].ID
			a.listIdx = max(a.conversations.IndexOf(id), 0)
			return a, a.session.SelectConversationCmd(id)
		}
		return a, nil

	case "alt+j", "down":
		if a.listIdx < len(a.filtered)-1 {
			a.listIdx++
		}
		return a, nil

	case "alt+k", "up":
		if a.listIdx > 0 {
			a.listIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	a.filtered = filterConversations(a.conversations.Conversations, a.filterInput.Value())
	if a.listIdx >= len(a.filtered) {
		a.listIdx = max(len(a.filtered)-1, 0)
	}
	return a, cmd
}

func (a AppView) handleMessageSearchKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showMessageSearch = false
		a.messageSearchInput.Blur()
		return a, nil

	case "enter":
		if a.selectedSearchIdx >= len(a.messageSearchResults) {
			return a, nil
		}
		match := a.messageSearchResults[a.selectedSearchIdx]
		a.showMessageSearch = false
		a.messageSearchInput.Blur()
		a.highlightedMessageID = match.MessageID
		a.highlightFlashCount = highlightFlashes
		a.updateViewportContent(false)
		a.scrollToMessage(match.MessageID)
		return a, model.FlashTick(250 * time.Millisecond)

	case "alt+j", "down":
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
		}
		return a, nil

	case "alt+k", "up":
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)
	a.messageSearchResults = storage.SearchMessages(a.thread.Messages, a.messageSearchInput.Value())
	a.selectedSearchIdx = 0
	return a, tea.Batch(cmd, textinput.Blink)
}

func (a AppView) exportCmd() tea.Cmd {
	conv, ok := a.conversations.SelectedConversation()
	if !ok {
		return nil
	}
	messages := a.thread.Messages
	if a.thread.ConversationID != conv.ID {
		messages = nil
	}

	return func() tea.Msg {
		path := storage.GenerateExportPath(conv.DisplayName())
		if err := storage.ExportConversation(conv, messages, path); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path}
	}
}

func formatTranscript(messages []model.Message) string {
	var text strings.Builder
	for _, msg := range messages {
		role := "You"
		if msg.IsAI {
			role = "Assistant"
		}
		text.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n", msg.CreatedAt.Local().Format("15:04"), role, msg.Content))
	}
	return text.String()
}
