package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"companion/model"
)

// ErrorModal is a standalone modal for errors that happen before the main UI
// starts (bad config, unreachable gateway URL).
type ErrorModal struct {
	title   string
	message string
	width   int
	height  int
}

func NewErrorModal(title, message string) ErrorModal {
	return ErrorModal{
		title:   title,
		message: message,
	}
}

func (m ErrorModal) Init() tea.Cmd {
	return nil
}

func (m ErrorModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ErrorModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}
	return renderMessageModal(m.title, m.message, "Press Enter to quit", m.width, m.height)
}

func renderMessageModal(title, message, footer string, width, height int) string {
	modalWidth := 60
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(dangerColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(title)

	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	for _, line := range strings.Split(message, "\n") {
		messageLines = append(messageLines, messageStyle.Render(line))
	}

	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	messageSection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(strings.Join(messageLines, "\n"))

	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	content := strings.Join([]string{titleSection, messageSection, footerSection}, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// describeError turns a session or gateway error into one status line.
func describeError(err error) string {
	switch model.KindOf(err) {
	case model.ErrorKindNone:
		return ""

	case model.ErrorKindValidation:
		var validationErr *model.ValidationError
		errors.As(err, &validationErr)
		return validationErr.Reason

	case model.ErrorKindTransport:
		var transportErr *model.TransportError
		errors.As(err, &transportErr)

		switch transportErr.Kind {
		case model.KindTimeout:
			return "Gateway did not answer in time"
		case model.KindNetwork:
			return "Gateway unreachable"
		case model.KindDecode:
			return "Unexpected response from gateway"
		}

		if detail := transportErr.Detail(); detail != "" {
			return detail
		}
		return fmt.Sprintf("Gateway error: %d %s", transportErr.Status, http.StatusText(transportErr.Status))

	default:
		if errors.Is(err, model.ErrSessionClosed) {
			return "Logged out"
		}
		return err.Error()
	}
}

// isUnauthorized reports whether err means the token is no longer accepted.
func isUnauthorized(err error) bool {
	var transportErr *model.TransportError
	return errors.As(err, &transportErr) && transportErr.Kind == model.KindHTTP && transportErr.Status == http.StatusUnauthorized
}
