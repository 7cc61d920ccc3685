package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-3.5-turbo"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "openai/gpt-4o-mini"
)

// OpenAIProvider implements Provider with the official OpenAI Go SDK. It also
// serves OpenRouter, whose API is OpenAI-compatible.
type OpenAIProvider struct {
	client openai.Client
	model  string
	label  string
}

// NewOpenAIProvider creates an OpenAI provider. The API key is required.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newOpenAICompatible("openai", orDefault(baseURL, DefaultOpenAIBaseURL), apiKey, orDefault(model, DefaultOpenAIModel)), nil
}

// NewOpenRouterProvider creates an OpenAI provider pointed at OpenRouter.
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	return newOpenAICompatible("openrouter", orDefault(baseURL, DefaultOpenRouterBaseURL), apiKey, orDefault(model, DefaultOpenRouterModel)), nil
}

func newOpenAICompatible(label, baseURL, apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &OpenAIProvider{
		client: client,
		model:  model,
		label:  label,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, turns []Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            ConvertToOpenAIMessages(turns),
		Model:               openai.ChatModel(p.model),
		Temperature:         openai.Float(replyTemperature),
		MaxCompletionTokens: openai.Int(replyMaxTokens),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.label, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s completion returned no choices", p.label)
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Name() string {
	return p.label + "/" + p.model
}

// Ping lists models, which needs a valid key but costs nothing.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", p.label, err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
