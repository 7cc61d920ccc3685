package gateway

import (
	"context"
	"fmt"
	"net/http"

	"companion/model"
)

func (c *Client) ListMessages(ctx context.Context, id model.ConversationID) ([]model.Message, error) {
	const op = "list messages"
	var records []MessageRecord
	path := fmt.Sprintf("/chat/%d/messages", id)
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return messagesToModel(op, id, records)
}

// SendMessage posts content and returns the generated reply. The gateway
// persists the user message itself but does not echo it back.
func (c *Client) SendMessage(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
	const op = "send message"
	var record MessageRecord
	path := fmt.Sprintf("/chat/%d/messages", id)
	if err := c.doJSON(ctx, op, http.MethodPost, path, sendRequest{Content: content}, &record); err != nil {
		return model.Message{}, err
	}
	if err := record.validate(); err != nil {
		return model.Message{}, decodeError(op, err)
	}
	if model.ConversationID(record.ConversationID) != id {
		return model.Message{}, decodeError(op, fmt.Errorf("reply belongs to conversation %d, expected %s", record.ConversationID, id))
	}
	if !record.IsAI {
		return model.Message{}, decodeError(op, fmt.Errorf("reply %d is not an assistant message", record.ID))
	}
	return record.toModel(), nil
}
