package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:latest"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
	options map[string]any
}

type ClientOption func(*Client)

// WithOptions sets model options such as temperature or num_predict.
func WithOptions(options map[string]any) ClientOption {
	return func(c *Client) {
		c.options = options
	}
}

func NewClient(baseURL, model string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL: %q", baseURL)
	}

	c := &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chat sends messages and collects the streamed answer into one string.
func (c *Client) Chat(ctx context.Context, messages []api.Message) (string, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Options:  c.options,
		Stream:   func(b bool) *bool { return &b }(true),
	}

	var answer strings.Builder
	respFunc := func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return "", err
	}
	return answer.String(), nil
}

// ListModels returns the names of the locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, len(resp.Models))
	for i, m := range resp.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the server answers and has the configured model installed.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	names, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	if !HasModel(names, c.model) {
		return fmt.Errorf("model %s is not installed (try: ollama pull %s)", c.model, c.model)
	}
	return nil
}

// HasModel reports whether model is in names. A name without a tag matches
// its ":latest" variant.
func HasModel(names []string, model string) bool {
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, name := range names {
		if name == model || name == want {
			return true
		}
	}
	return false
}
