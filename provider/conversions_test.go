package provider

import (
	"testing"

	"github.com/ollama/ollama/api"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []Turn
		expected []api.Message
	}{
		{
			name:     "empty slice",
			input:    []Turn{},
			expected: []api.Message{},
		},
		{
			name: "multiple turns",
			input: []Turn{
				{Role: RoleSystem, Content: "Be kind"},
				{Role: RoleUser, Content: "Hello"},
				{Role: RoleAssistant, Content: "Hi there"},
			},
			expected: []api.Message{
				{Role: "system", Content: "Be kind"},
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}
			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
			}
		})
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	turns := []Turn{
		{Role: RoleSystem, Content: "Be kind"},
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi there"},
		{Role: Role("tool"), Content: "result"},
	}

	result := ConvertToOpenAIMessages(turns)
	if len(result) != len(turns) {
		t.Fatalf("length mismatch: got %d, want %d", len(result), len(turns))
	}
	if result[0].OfSystem == nil {
		t.Error("message 0: expected system message")
	}
	if result[1].OfUser == nil {
		t.Error("message 1: expected user message")
	}
	if result[2].OfAssistant == nil {
		t.Error("message 2: expected assistant message")
	}
	if result[3].OfUser == nil {
		t.Error("message 3: unknown role should become a user message")
	}
}

func TestConvertToAnthropicMessages(t *testing.T) {
	turns := []Turn{
		{Role: RoleSystem, Content: "Be kind"},
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi there"},
	}

	messages, system := convertToAnthropicMessages(turns)

	if len(system) != 1 || system[0].Text != "Be kind" {
		t.Errorf("system = %+v, want one block with the prompt", system)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("message 0 role = %q, want user", messages[0].Role)
	}
	if messages[1].Role != "assistant" {
		t.Errorf("message 1 role = %q, want assistant", messages[1].Role)
	}
}
