package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (a AppView) renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	blue := lipgloss.NewStyle().Foreground(accentColor)

	entry := func(key, desc string) string {
		return fmt.Sprintf("• %-13s %s", key, desc)
	}

	globalActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Global Actions"),
		entry("Ctrl+N", "New conversation"),
		entry("Ctrl+R", "Reload messages"),
		entry("Ctrl+F", "Search conversation"),
		entry("Ctrl+E", "Export conversation"),
		entry("Ctrl+T", "Start fine-tuning"),
		entry("Ctrl+P", "Check gateway health"),
		entry("Ctrl+L", "Log out"),
		entry("Tab", "Switch focus"),
		entry("F1 / ?", "Toggle this help"),
		entry("Ctrl+C", "Quit"),
	)

	listActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Conversation List"),
		entry("j/k", "Open next/previous"),
		entry("n", "New conversation"),
		entry("r", "Rename"),
		entry("d", "Delete"),
		entry("/", "Filter"),
		entry("Enter", "Start typing"),
	)

	chatActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Chat"),
		entry("Enter", "Send message"),
		entry("Esc", "Back to list"),
		entry("PgUp/PgDn", "Scroll"),
		entry("Alt+Y", "Copy last reply"),
		entry("Alt+C", "Copy conversation"),
	)

	columnStyle := lipgloss.NewStyle().Width(42).PaddingLeft(4)

	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(globalActions),
		columnStyle.Render(lipgloss.JoinVertical(lipgloss.Left, listActions, "", chatActions)),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		green.Render("Companion - Keyboard Shortcuts"),
		"",
		twoColumns,
		"",
		HelpStyle.Render("Press ? or Esc to close this help"),
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpBox.Render(content))
}
