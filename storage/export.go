package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"companion/model"
)

// ExportedMessage is a message in an export file
type ExportedMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationExport is the JSON document written by ExportConversation
type ConversationExport struct {
	ConversationID int64             `json:"conversation_id"`
	Name           string            `json:"name"`
	CreatedAt      time.Time         `json:"created_at"`
	ExportedAt     time.Time         `json:"exported_at"`
	Messages       []ExportedMessage `json:"messages"`
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-",
		"<", "-", ">", "-", "|", "-", " ", "-", "\n", "-", "\r", "-",
	)
	name = replacer.Replace(name)

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = name[:50]
	}

	if name == "" {
		name = "conversation"
	}

	return name
}

// GenerateExportPath returns ~/Downloads/companion-<name>-<timestamp>.json
func GenerateExportPath(conversationName string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE") // Windows fallback
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("companion-%s-%s.json", SanitizeFilename(conversationName), timestamp)

	return filepath.Join(homeDir, "Downloads", filename)
}

// ExportConversation writes the thread as indented JSON. Provisional messages
// are skipped since the gateway never confirmed them.
func ExportConversation(conv model.Conversation, messages []model.Message, exportPath string) error {
	export := ConversationExport{
		ConversationID: int64(conv.ID),
		Name:           conv.DisplayName(),
		CreatedAt:      conv.CreatedAt,
		ExportedAt:     time.Now(),
		Messages:       make([]ExportedMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		if msg.Provisional {
			continue
		}
		export.Messages = append(export.Messages, ExportedMessage{
			ID:        msg.ID,
			Role:      msg.Role(),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// 0600: exports contain the conversation text
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
