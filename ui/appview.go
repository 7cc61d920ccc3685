package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"companion/gateway"
	"companion/model"
	"companion/storage"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
)

// AppView is the chat screen of a logged in user: the conversation sidebar, the
// message thread and the input line. All state it shows comes from session
// snapshots; it never mutates conversations or messages itself.
type AppView struct {
	session *model.Session
	client  *gateway.Client
	user    gateway.User
	changes <-chan struct{}

	// Last snapshots taken after a StateChangedMsg
	conversations model.ConversationsSnapshot
	thread        model.ThreadSnapshot

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	focus   focusArea
	listIdx int

	filterMode  bool
	filterInput textinput.Model
	filtered    []model.Conversation

	renameMode  bool
	renameInput textinput.Model
	renameID    model.ConversationID

	confirmDelete *model.Conversation

	// Rendered markdown of AI replies keyed by message ID, valid for renderWidth
	rendered    map[string]string
	rendering   map[string]bool
	renderWidth int

	// Line offset of every message in the viewport content
	messageOffsets []int

	showHelp bool

	showMessageSearch    bool
	messageSearchInput   textinput.Model
	messageSearchResults []storage.MessageMatch
	selectedSearchIdx    int

	highlightedMessageID string
	highlightFlashCount  int

	status      string
	statusError bool
	lastSent    string
	fineTuning  bool
}

func NewAppView(session *model.Session, client *gateway.Client, user gateway.User) AppView {
	input := textinput.New()
	input.Placeholder = "Type your message and press Enter..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	filterInput := textinput.New()
	filterInput.Prompt = "Filter: "
	filterInput.CharLimit = 64

	renameInput := textinput.New()
	renameInput.Prompt = ""
	renameInput.CharLimit = 100

	messageSearchInput := textinput.New()
	messageSearchInput.Prompt = "Search: "
	messageSearchInput.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	return AppView{
		session:            session,
		client:             client,
		user:               user,
		changes:            session.Changes(),
		conversations:      session.Conversations().Snapshot(),
		thread:             session.Thread().Snapshot(),
		viewport:           viewport.New(0, 0),
		input:              input,
		spinner:            sp,
		focus:              focusInput,
		filterInput:        filterInput,
		renameInput:        renameInput,
		messageSearchInput: messageSearchInput,
		rendered:           make(map[string]string),
		rendering:          make(map[string]bool),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		a.session.LoadConversationsCmd(),
		model.WaitForChange(a.session.Context(), a.changes),
		a.spinner.Tick,
		textinput.Blink,
	)
}

// Session returns the session shown by this view.
func (a AppView) Session() *model.Session {
	return a.session
}

// layout sizes the viewport and inputs for the current window.
func (a *AppView) layout() {
	mainWidth := a.width - sidebarWidth
	if mainWidth < 20 {
		mainWidth = 20
	}

	// header (1) + input (1) + status (1) + spacing (2)
	a.viewport.Width = mainWidth - 2
	a.viewport.Height = a.height - 5
	if a.viewport.Height < 3 {
		a.viewport.Height = 3
	}

	a.input.Width = mainWidth - 6
	a.renameInput.Width = sidebarWidth - 6
	a.filterInput.Width = sidebarWidth - 12
	a.messageSearchInput.Width = 60
}

func (a *AppView) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

// busy reports whether a spinner should be shown.
func (a AppView) busy() bool {
	return a.thread.State == model.ThreadLoading || a.thread.Sending() || a.fineTuning
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading conversations..."
	}

	// Overlays, top layer first
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}
	if a.confirmDelete != nil {
		warning := lipgloss.NewStyle().Foreground(dangerColor).Render("The conversation and its messages are removed on the gateway.")
		return RenderConfirmationModal(ConfirmationState{
			Active:  true,
			Title:   "⚠ Delete Conversation",
			Message: "Delete \"" + a.confirmDelete.DisplayName() + "\"?\n\n" + warning,
		}, a.width, a.height)
	}
	if a.showMessageSearch {
		return a.renderMessageSearch(a.width, a.height)
	}

	sidebar := a.renderSidebar(a.height - 1)
	main := lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderHeader(),
		a.viewport.View(),
		"",
		a.input.View(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar())
}

func (a AppView) renderHeader() string {
	conv, ok := a.conversations.SelectedConversation()
	if !ok {
		return DimStyle.Render("No conversation selected")
	}

	header := TitleStyle.Render(conv.DisplayName())
	switch a.thread.State {
	case model.ThreadLoading:
		header += " " + DimStyle.Render(a.spinner.View()+" loading")
	case model.ThreadSending:
		header += " " + DimStyle.Render(a.spinner.View()+" waiting for reply")
	}
	return header
}

func (a AppView) renderStatusBar() string {
	if a.status != "" {
		if a.statusError {
			return ErrorStyle.Render(a.status)
		}
		return StatusStyle.Render(a.status)
	}

	who := a.user.FullName
	if who == "" {
		who = a.user.Email
	}
	footer := FormatFooter("Tab", "Focus", "Ctrl+N", "New", "Ctrl+F", "Search", "Ctrl+E", "Export", "?", "Help")
	return strings.TrimSpace(DimStyle.Render(who) + "  " + footer)
}
