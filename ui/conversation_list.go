package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"companion/model"
)

const sidebarWidth = 32

// filterConversations returns the conversations whose display name fuzzily
// matches query, best match first. An empty query keeps the list as is.
func filterConversations(conversations []model.Conversation, query string) []model.Conversation {
	if strings.TrimSpace(query) == "" {
		return conversations
	}

	targets := make([]string, len(conversations))
	for i, c := range conversations {
		targets[i] = c.DisplayName()
	}

	matches := fuzzy.Find(query, targets)
	filtered := make([]model.Conversation, len(matches))
	for i, match := range matches {
		filtered[i] = conversations[match.Index]
	}
	return filtered
}

// truncateName shortens name to width terminal cells.
func truncateName(name string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(name) <= width {
		return name
	}
	return runewidth.Truncate(name, width, "...")
}

// visibleConversations is what the sidebar currently lists.
func (a AppView) visibleConversations() []model.Conversation {
	if a.filterMode {
		return a.filtered
	}
	return a.conversations.Conversations
}

func (a AppView) renderSidebar(height int) string {
	innerWidth := sidebarWidth - 2
	list := a.visibleConversations()

	var header string
	switch {
	case a.filterMode:
		header = a.filterInput.View()
	case len(list) == 1:
		header = DimStyle.Render("1 conversation")
	default:
		header = DimStyle.Render(fmt.Sprintf("%d conversations", len(list)))
	}

	lines := []string{TitleStyle.Render("Conversations"), header, ""}

	maxLines := height - len(lines) - 2
	if maxLines < 1 {
		maxLines = 1
	}

	if len(list) == 0 {
		empty := "No conversations yet.\nPress n to start one."
		if a.filterMode {
			empty = "No matches found"
		}
		lines = append(lines, DimStyle.Italic(true).Render(empty))
	} else {
		startIdx, endIdx := scrollWindow(a.listIdx, len(list), maxLines)

		for i := startIdx; i < endIdx; i++ {
			conv := list[i]

			indicator := "  "
			if i == a.listIdx && a.focus == focusList {
				indicator = "▶ "
			}

			if a.renameMode && conv.ID == a.renameID {
				lines = append(lines, indicator+lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(a.renameInput.View()))
				continue
			}

			age := formatTimeAgo(conv.CreatedAt)
			nameWidth := innerWidth - len(indicator) - len(age) - 1
			name := truncateName(conv.DisplayName(), nameWidth)
			padding := innerWidth - len(indicator) - runewidth.StringWidth(name) - len(age)
			if padding < 1 {
				padding = 1
			}

			nameStyled := name
			switch {
			case conv.ID == a.conversations.Selected:
				nameStyled = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(name)
			case i == a.listIdx && a.focus == focusList:
				nameStyled = SelectedStyle.Render(name)
			}

			lines = append(lines, indicator+nameStyled+strings.Repeat(" ", padding)+DimStyle.Render(age))
		}
	}

	style := sidebarStyle
	if a.focus == focusList {
		style = focusedSidebarStyle
	}
	return style.Width(innerWidth).Height(height).Render(strings.Join(lines, "\n"))
}

// scrollWindow keeps the cursor roughly centered in a list of total items.
func scrollWindow(cursor, total, visible int) (start, end int) {
	if total <= visible {
		return 0, total
	}
	switch {
	case cursor < visible/2:
		return 0, visible
	case cursor >= total-visible/2:
		return total - visible, total
	default:
		start = cursor - visible/2
		return start, start + visible
	}
}

// formatTimeAgo formats a time as a relative string (e.g., "2h ago", "3d ago")
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "now"
	case duration < time.Hour:
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh", int(duration.Hours()))
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(duration.Hours()/24))
	case duration < 30*24*time.Hour:
		return fmt.Sprintf("%dw", int(duration.Hours()/24/7))
	default:
		return fmt.Sprintf("%dmo", int(duration.Hours()/24/30))
	}
}
