package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"companion/model"
)

// Timestamp accepts the gateway's datetime encodings: RFC 3339 with or without
// an offset. Naive values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}

// ConversationRecord is a conversation as sent by the gateway.
type ConversationRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      *string   `json:"name"`
	CreatedAt Timestamp `json:"created_at"`
}

func (r ConversationRecord) validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("conversation has invalid id %d", r.ID)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("conversation %d has no created_at", r.ID)
	}
	return nil
}

func (r ConversationRecord) toModel() model.Conversation {
	c := model.Conversation{
		ID:        model.ConversationID(r.ID),
		CreatedAt: r.CreatedAt.Time,
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	return c
}

// MessageRecord is a message as sent by the gateway.
type MessageRecord struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Content        string    `json:"content"`
	IsAI           bool      `json:"is_ai"`
	CreatedAt      Timestamp `json:"created_at"`
}

func (r MessageRecord) validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("message has invalid id %d", r.ID)
	}
	if r.ConversationID <= 0 {
		return fmt.Errorf("message %d has invalid conversation_id %d", r.ID, r.ConversationID)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("message %d has no created_at", r.ID)
	}
	return nil
}

func (r MessageRecord) toModel() model.Message {
	return model.Message{
		ID:             strconv.FormatInt(r.ID, 10),
		ConversationID: model.ConversationID(r.ConversationID),
		Content:        r.Content,
		IsAI:           r.IsAI,
		CreatedAt:      r.CreatedAt.Time,
	}
}

// User is the logged in account.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

func (u User) validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("user has invalid id %d", u.ID)
	}
	if u.Email == "" {
		return errors.New("user has no email")
	}
	return nil
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type sendRequest struct {
	Content string `json:"content"`
}

type statusResponse struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

func conversationsToModel(op string, records []ConversationRecord) ([]model.Conversation, error) {
	conversations := make([]model.Conversation, 0, len(records))
	for _, r := range records {
		if err := r.validate(); err != nil {
			return nil, decodeError(op, err)
		}
		conversations = append(conversations, r.toModel())
	}
	return conversations, nil
}

func messagesToModel(op string, id model.ConversationID, records []MessageRecord) ([]model.Message, error) {
	messages := make([]model.Message, 0, len(records))
	for _, r := range records {
		if err := r.validate(); err != nil {
			return nil, decodeError(op, err)
		}
		if model.ConversationID(r.ConversationID) != id {
			return nil, decodeError(op, fmt.Errorf("message %d belongs to conversation %d, expected %s", r.ID, r.ConversationID, id))
		}
		messages = append(messages, r.toModel())
	}
	return messages, nil
}
