package provider

import (
	"context"
	"fmt"

	"companion/ollama"
)

// OllamaProvider wraps ollama.Client to implement Provider.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a provider for the Ollama server at baseURL.
// Empty arguments fall back to the local server and llama3.1.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model, ollama.WithOptions(map[string]any{
		"temperature": replyTemperature,
		"num_predict": replyMaxTokens,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{client: client}, nil
}

func (p *OllamaProvider) Complete(ctx context.Context, turns []Turn) (string, error) {
	answer, err := p.client.Chat(ctx, ConvertToOllamaMessages(turns))
	if err != nil {
		return "", fmt.Errorf("Ollama chat failed: %w", err)
	}
	return answer, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama/" + p.client.GetModel()
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}
