// Package gateway is the HTTP client for the chat gateway API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"companion/config"
	"companion/model"
)

// TokenSource supplies the bearer token for outgoing requests. An empty token
// means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// maxErrorPayload caps how much of an error body is kept for display.
const maxErrorPayload = 64 << 10

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient, e.g. to set a transport or a
// hard deadline that also covers reading the body.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request. Zero disables the client side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the gateway at baseURL (e.g. http://localhost:8000/api).
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = config.DefaultGatewayURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid gateway URL %q: missing scheme or host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: http.DefaultClient,
		timeout:    config.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ model.Gateway = (*Client)(nil)

func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and decodes a 2xx JSON body into out (when out is non-nil).
// Every failure comes back as *model.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &model.TransportError{Op: op, Kind: model.KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] %s %s", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Kind: classifyNetworkError(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Gateway] %s %s -> %d: %s", method, path, resp.StatusCode, payload)
		}
		return &model.TransportError{
			Op:      op,
			Kind:    model.KindHTTP,
			Status:  resp.StatusCode,
			Payload: payload,
			Err:     fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		kind := model.KindDecode
		if ctx.Err() != nil {
			kind = classifyNetworkError(ctx, err)
		}
		return &model.TransportError{Op: op, Kind: kind, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &model.TransportError{Op: op, Kind: model.KindDecode, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func classifyNetworkError(ctx context.Context, err error) model.TransportErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.KindTimeout
	}
	return model.KindNetwork
}

func decodeError(op string, err error) error {
	return &model.TransportError{Op: op, Kind: model.KindDecode, Err: err}
}
