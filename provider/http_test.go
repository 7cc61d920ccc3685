package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// recordingServer answers path with body and records the decoded request.
func recordingServer(t *testing.T, path, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, path) {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestOpenAIProviderComplete(t *testing.T) {
	srv, got := recordingServer(t, "/chat/completions", `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-3.5-turbo",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "That sounds hard."},
			"finish_reason": "stop"
		}]
	}`)

	p, err := NewOpenAIProvider(srv.URL, "test-key", "")
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	answer, err := p.Complete(context.Background(), []Turn{
		{Role: RoleSystem, Content: CompanionPrompt},
		{Role: RoleUser, Content: "Rough day"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "That sounds hard." {
		t.Errorf("Complete() = %q", answer)
	}

	if (*got)["model"] != "gpt-3.5-turbo" {
		t.Errorf("request model = %v", (*got)["model"])
	}
	if messages, _ := (*got)["messages"].([]any); len(messages) != 2 {
		t.Errorf("request carried %d messages, want 2", len(messages))
	}
}

func TestAnthropicProviderComplete(t *testing.T) {
	srv, got := recordingServer(t, "/v1/messages", `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5-20250929",
		"content": [
			{"type": "text", "text": "I'm listening. "},
			{"type": "text", "text": "Tell me more."}
		],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	p, err := NewAnthropicProvider(srv.URL, "test-key", "")
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	answer, err := p.Complete(context.Background(), []Turn{
		{Role: RoleSystem, Content: "Be kind"},
		{Role: RoleUser, Content: "Rough day"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "I'm listening. Tell me more." {
		t.Errorf("Complete() = %q", answer)
	}

	if messages, _ := (*got)["messages"].([]any); len(messages) != 1 {
		t.Errorf("request carried %d messages, want 1 (system is separate)", len(messages))
	}
	if (*got)["system"] == nil {
		t.Error("request has no system prompt")
	}
}

func TestOllamaProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"I'm "},"done":false}` + "\n"))
		w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"here."},"done":true}` + "\n"))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}

	answer, err := p.Complete(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "I'm here." {
		t.Errorf("Complete() = %q, want the concatenated stream", answer)
	}
}
