// Package provider generates companion replies through an LLM backend.
//
// The dev gateway answers every stored user message with a reply. By default
// the reply is a canned echo; when a provider is configured the reply comes
// from a real model instead:
//
//   - OllamaProvider talks to a local Ollama server
//   - OpenAIProvider talks to OpenAI or any OpenAI-compatible API (OpenRouter)
//   - AnthropicProvider talks to the Anthropic Messages API
//
// A Responder turns the stored conversation history into the turns a
// provider completes, prefixed with the companion system prompt.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Role is the author of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one provider-agnostic chat message.
type Turn struct {
	Role    Role
	Content string
}

// Provider completes a chat.
type Provider interface {
	// Complete returns the assistant's answer to turns.
	Complete(ctx context.Context, turns []Turn) (string, error)
	// Name identifies the backend and model, e.g. "openai/gpt-3.5-turbo".
	Name() string
	// Ping checks that the backend is reachable with the configured credentials.
	Ping(ctx context.Context) error
}

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeNone       ProviderType = ""
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config selects and configures a provider.
type Config struct {
	Type    ProviderType `env:"COMPANION_REPLY_PROVIDER"`
	BaseURL string       `env:"COMPANION_REPLY_BASE_URL"`
	Model   string       `env:"COMPANION_REPLY_MODEL"`
	APIKey  string       `env:"COMPANION_REPLY_API_KEY"`
}

// Enabled reports whether a provider was selected.
func (c Config) Enabled() bool {
	return c.Type != ProviderTypeNone
}

// ConfigFromEnv reads the provider selection from the environment. OpenAI
// falls back to OPENAI_API_KEY when no key is set explicitly.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read provider environment: %w", err)
	}

	cfg.Type = ParseProviderType(string(cfg.Type))
	if cfg.APIKey == "" && cfg.Type == ProviderTypeOpenAI {
		var fallback struct {
			APIKey string `env:"OPENAI_API_KEY"`
		}
		if err := cleanenv.ReadEnv(&fallback); err == nil {
			cfg.APIKey = fallback.APIKey
		}
	}
	return cfg, nil
}

// ParseProviderType normalizes a provider ID. "echo" and "none" disable the
// provider; unknown IDs are passed through for NewProvider to reject.
func ParseProviderType(id string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", "echo", "none":
		return ProviderTypeNone
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}
