package provider

import (
	"context"
	"fmt"
	"strings"
)

// CompanionPrompt is the default system prompt for replies.
const CompanionPrompt = `You are a compassionate and understanding AI companion. Your role is to provide emotional support, listen actively, and help users process their thoughts and feelings. While you can offer suggestions and perspective, make it clear that you're not a replacement for professional mental health support when serious issues arise.`

// DefaultHistoryLimit is how many earlier messages accompany a new one.
const DefaultHistoryLimit = 5

const (
	replyTemperature = 0.7
	replyMaxTokens   = 500
)

// Responder answers a user message in the context of its conversation.
type Responder struct {
	provider     Provider
	systemPrompt string
	historyLimit int
}

type ResponderOption func(*Responder)

// WithSystemPrompt replaces CompanionPrompt. An empty prompt sends no system turn.
func WithSystemPrompt(prompt string) ResponderOption {
	return func(r *Responder) {
		r.systemPrompt = prompt
	}
}

// WithHistoryLimit caps the earlier messages sent along. Zero sends none.
func WithHistoryLimit(n int) ResponderOption {
	return func(r *Responder) {
		if n >= 0 {
			r.historyLimit = n
		}
	}
}

func NewResponder(p Provider, opts ...ResponderOption) *Responder {
	r := &Responder{
		provider:     p,
		systemPrompt: CompanionPrompt,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provider returns the backing provider.
func (r *Responder) Provider() Provider {
	return r.provider
}

// Turns builds the request: the system prompt, the most recent history
// (oldest first) and finally content as a user turn.
func (r *Responder) Turns(history []Turn, content string) []Turn {
	if len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}

	turns := make([]Turn, 0, len(history)+2)
	if r.systemPrompt != "" {
		turns = append(turns, Turn{Role: RoleSystem, Content: r.systemPrompt})
	}
	turns = append(turns, history...)
	turns = append(turns, Turn{Role: RoleUser, Content: content})
	return turns
}

// Reply asks the provider to answer content. A blank answer is an error.
func (r *Responder) Reply(ctx context.Context, history []Turn, content string) (string, error) {
	answer, err := r.provider.Complete(ctx, r.Turns(history, content))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%s returned an empty reply", r.provider.Name())
	}
	return answer, nil
}
