package storage

import (
	"strings"
	"time"

	"companion/model"
)

// MessageMatch is a search hit within the current thread
type MessageMatch struct {
	MessageIndex int
	MessageID    string
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

const previewLength = 100

// SearchMessages returns the messages containing query, case-insensitively,
// in thread order.
func SearchMessages(messages []model.Message, query string) []MessageMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MessageMatch{}
	}

	queryLower := strings.ToLower(query)
	matches := []MessageMatch{}

	for i, msg := range messages {
		if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
			continue
		}

		matches = append(matches, MessageMatch{
			MessageIndex: i,
			MessageID:    msg.ID,
			Role:         msg.Role(),
			Content:      msg.Content,
			Preview:      preview(msg.Content),
			Timestamp:    msg.CreatedAt,
		})
	}

	return matches
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return content
}
