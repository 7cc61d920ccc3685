package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"companion/config"
)

// Login exchanges credentials for a bearer token. The gateway expects an
// OAuth2 password form with the email as username.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	const op = "login"
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var token Token
	err := c.do(ctx, op, http.MethodPost, "/auth/token", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &token)
	if err != nil {
		return Token{}, err
	}
	if token.AccessToken == "" {
		return Token{}, decodeError(op, errors.New("response has no access_token"))
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] Logged in as %s", email)
	}
	return token, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	const op = "register"
	var user User
	if err := c.doJSON(ctx, op, http.MethodPost, "/auth/register", reg, &user); err != nil {
		return User{}, err
	}
	if err := user.validate(); err != nil {
		return User{}, decodeError(op, err)
	}
	return user, nil
}

// Profile returns the user the current token belongs to.
func (c *Client) Profile(ctx context.Context) (User, error) {
	const op = "profile"
	var user User
	if err := c.doJSON(ctx, op, http.MethodGet, "/users/me", nil, &user); err != nil {
		return User{}, err
	}
	if err := user.validate(); err != nil {
		return User{}, decodeError(op, err)
	}
	return user, nil
}

// StartFineTuning asks the gateway to fine-tune on the user's conversations.
// It returns the gateway's acknowledgement text.
func (c *Client) StartFineTuning(ctx context.Context) (string, error) {
	var resp statusResponse
	if err := c.doJSON(ctx, "start fine-tuning", http.MethodPost, "/fine-tune", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Ping checks that the gateway is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil)
}
