package gateway

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"companion/config"
)

// LoggedInMsg is sent when a login (or a restored token) has been verified.
type LoggedInMsg struct {
	User User
	Err  error
}

// RegisteredMsg is sent when registration completes. A successful registration
// is followed by a login with the same credentials.
type RegisteredMsg struct {
	User User
	Err  error
}

type FineTuneStartedMsg struct {
	Message string
	Err     error
}

type PingMsg struct {
	Err error
}

// LoginCmd logs in, stores the token and fetches the profile. On any failure
// the token store is left empty.
func LoginCmd(c *Client, tokens *config.TokenStore, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		token, err := c.Login(ctx, email, password)
		if err != nil {
			return LoggedInMsg{Err: err}
		}
		tokens.Set(token.AccessToken)

		user, err := c.Profile(ctx)
		if err != nil {
			tokens.Clear()
			return LoggedInMsg{Err: fmt.Errorf("failed to load profile: %w", err)}
		}
		return LoggedInMsg{User: user}
	}
}

// ResumeCmd verifies a token loaded from disk by fetching the profile.
func ResumeCmd(c *Client, tokens *config.TokenStore) tea.Cmd {
	return func() tea.Msg {
		user, err := c.Profile(context.Background())
		if err != nil {
			tokens.Clear()
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Gateway] Saved token rejected: %v", err)
			}
			return LoggedInMsg{Err: err}
		}
		return LoggedInMsg{User: user}
	}
}

func RegisterCmd(c *Client, reg Registration) tea.Cmd {
	return func() tea.Msg {
		user, err := c.Register(context.Background(), reg)
		return RegisteredMsg{User: user, Err: err}
	}
}

func FineTuneCmd(c *Client) tea.Cmd {
	return func() tea.Msg {
		message, err := c.StartFineTuning(context.Background())
		return FineTuneStartedMsg{Message: message, Err: err}
	}
}

func PingCmd(c *Client) tea.Cmd {
	return func() tea.Msg {
		return PingMsg{Err: c.Ping(context.Background())}
	}
}
