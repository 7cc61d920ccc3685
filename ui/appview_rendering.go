package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"companion/config"
	"companion/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

// go-term-markdown prefixes code block lines with this bar
const codeBlockBar = "┃"

func (a *AppView) updateViewportContent(gotoBottom bool) {
	a.messageOffsets = a.messageOffsets[:0]

	if a.conversations.Selected == model.NoConversation {
		a.viewport.SetContent(DimStyle.Render("Select a conversation or press Ctrl+N to start one."))
		return
	}
	if a.thread.State == model.ThreadLoading {
		a.viewport.SetContent(a.spinner.View() + " Loading messages...")
		return
	}
	if len(a.thread.Messages) == 0 {
		a.viewport.SetContent("No messages yet. Start chatting!")
		return
	}

	var content strings.Builder
	lines := 0

	for _, msg := range a.thread.Messages {
		a.messageOffsets = append(a.messageOffsets, lines)

		highlightPrefix := ""
		if msg.ID == a.highlightedMessageID && a.highlightFlashCount%2 == 1 {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}

		timestamp := DimStyle.Render(msg.CreatedAt.Local().Format("[15:04]"))

		var block string
		switch {
		case msg.Provisional:
			block = formatUserMessage(highlightPrefix, timestamp, PendingStyle.Render("You (sending)"), PendingStyle.Render(msg.Content))
		case !msg.IsAI:
			block = formatUserMessage(highlightPrefix, timestamp, UserStyle.Render("You"), msg.Content)
		default:
			body, ok := a.rendered[msg.ID]
			if !ok {
				body = msg.Content
			}
			block = fmt.Sprintf("%s%s %s\n%s\n\n", highlightPrefix, timestamp, AssistantStyle.Render("Assistant"), strings.TrimRight(body, "\n"))
		}

		content.WriteString(block)
		lines += strings.Count(block, "\n")
	}

	if a.thread.Sending() {
		content.WriteString(fmt.Sprintf("%s %s\n", a.spinner.View(), DimStyle.Render("Waiting for response...")))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// scrollToMessage moves the viewport to the message with id.
func (a *AppView) scrollToMessage(id string) {
	for i, msg := range a.thread.Messages {
		if msg.ID == id && i < len(a.messageOffsets) {
			a.viewport.SetYOffset(a.messageOffsets[i])
			return
		}
	}
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	bar := "\x1b[32;1m" + "┃" + "\x1b[0m"

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s%s %s %s\n", highlightPrefix, bar, timestamp, role))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")

	return result.String()
}

// pendingRenders starts a markdown render for every AI reply that has none for
// the current width.
func (a *AppView) pendingRenders() tea.Cmd {
	var cmds []tea.Cmd
	for _, msg := range a.thread.Messages {
		if !msg.IsAI || msg.Provisional {
			continue
		}
		if _, done := a.rendered[msg.ID]; done || a.rendering[msg.ID] {
			continue
		}
		a.rendering[msg.ID] = true
		cmds = append(cmds, renderMarkdownAsync(msg.ID, msg.Content, a.viewport.Width))
	}
	return tea.Batch(cmds...)
}

func renderMarkdownAsync(messageID, content string, width int) tea.Cmd {
	return func() tea.Msg {
		return markdownRenderedMsg{
			MessageID: messageID,
			Rendered:  renderMarkdown(content, width),
		}
	}
}

// renderMarkdown renders content for the terminal. Autolink is disabled so URLs
// stay plain text the terminal can detect.
func renderMarkdown(content string, width int) string {
	startTime := time.Now()
	if width < 20 {
		width = 20
	}

	content = mdLinkRegex.ReplaceAllString(content, "$2")

	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	r := markdown.NewRenderer(width-2, 0)
	rendered := string(gomarkdown.Render(p.Parse([]byte(content)), r))

	rendered = inlineCodeRegex.ReplaceAllString(rendered, "\x1b[31m$1\x1b[0m")
	rendered = colorURLs(rendered)
	rendered = frameCodeBlocks(rendered, width)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Rendered %d chars of markdown in %v", len(content), time.Since(startTime))
	}
	return rendered
}

// colorURLs paints plain URLs red outside code blocks.
func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBlockBar) {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the bar prefix of code blocks with a horizontal
// frame labelled [code].
func frameCodeBlocks(s string, width int) string {
	const darkGray, reset = "\x1b[90m", "\x1b[0m"

	ruleWidth := width - 4
	if ruleWidth < 8 {
		ruleWidth = 8
	}
	label := "[code]"
	left := (ruleWidth - len(label)) / 2
	top := darkGray + strings.Repeat("━", left) + reset + label + darkGray + strings.Repeat("━", ruleWidth-len(label)-left) + reset
	bottom := darkGray + strings.Repeat("━", ruleWidth) + reset

	var result []string
	inCodeBlock := false

	for _, line := range strings.Split(s, "\n") {
		isCode := strings.Contains(line, codeBlockBar)
		switch {
		case isCode && !inCodeBlock:
			result = append(result, "", top, "")
			inCodeBlock = true
		case !isCode && inCodeBlock:
			result = append(result, "", bottom, "")
			inCodeBlock = false
		}

		if isCode {
			line = stripCodeBlockPrefix(line)
		}
		result = append(result, line)
	}

	if inCodeBlock {
		result = append(result, "", bottom, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBlockBar)
	if idx < 0 {
		return line
	}
	rest := line[idx+len(codeBlockBar):]
	return strings.TrimPrefix(rest, " ")
}
