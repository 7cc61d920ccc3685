package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (a AppView) renderMessageSearch(width, height int) string {
	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	name := "conversation"
	if conv, ok := a.conversations.SelectedConversation(); ok {
		name = conv.DisplayName()
	}
	title := TitleStyle.Render("🔍 Search " + name)

	results := a.messageSearchResults
	resultsView := ""
	if len(results) == 0 {
		if a.messageSearchInput.Value() == "" {
			resultsView = DimStyle.Render("Type to search messages in this conversation...")
		} else {
			resultsView = DimStyle.Render("No matches found")
		}
	} else {
		// Border(2) + Padding(2) + Title(1) + Blank(1) + Input(1) + Blank(1) +
		// Count(1) + Blank(1) + Footer(1) + Blank(1), plus 4 lines of scroll hints
		availableLines := height - 16
		maxVisible := max(availableLines/3, 1)

		startIdx, endIdx := scrollWindow(a.selectedSearchIdx, len(results), maxVisible)

		resultsView = fmt.Sprintf("Found %d matches:\n\n", len(results))
		if startIdx > 0 {
			resultsView += DimStyle.Render(fmt.Sprintf("↑ %d more above\n\n", startIdx))
		}

		for i := startIdx; i < endIdx; i++ {
			match := results[i]

			roleStyle := UserStyle
			if match.Role == "assistant" {
				roleStyle = AssistantStyle
			}

			matchText := fmt.Sprintf("%s [%s]\n  %s",
				roleStyle.Render(match.Role),
				match.Timestamp.Local().Format("Jan 2, 3:04 PM"),
				match.Preview,
			)

			if i == a.selectedSearchIdx {
				matchText = SelectedStyle.Render("> " + matchText)
			} else {
				matchText = "  " + matchText
			}

			resultsView += matchText + "\n\n"
		}

		if endIdx < len(results) {
			resultsView += DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-endIdx))
		}
	}

	footer := FormatFooter("Type", "to search", "↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		a.messageSearchInput.View(),
		"",
		resultsView,
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
