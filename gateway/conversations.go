package gateway

import (
	"context"
	"fmt"
	"net/http"

	"companion/model"
)

func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	const op = "list conversations"
	var records []ConversationRecord
	if err := c.doJSON(ctx, op, http.MethodGet, "/chat/conversations", nil, &records); err != nil {
		return nil, err
	}
	return conversationsToModel(op, records)
}

func (c *Client) CreateConversation(ctx context.Context) (model.Conversation, error) {
	const op = "create conversation"
	var record ConversationRecord
	if err := c.doJSON(ctx, op, http.MethodPost, "/chat/conversations", nil, &record); err != nil {
		return model.Conversation{}, err
	}
	if err := record.validate(); err != nil {
		return model.Conversation{}, decodeError(op, err)
	}
	return record.toModel(), nil
}

func (c *Client) RenameConversation(ctx context.Context, id model.ConversationID, name string) (model.Conversation, error) {
	const op = "rename conversation"
	var record ConversationRecord
	path := fmt.Sprintf("/chat/conversations/%d/name", id)
	if err := c.doJSON(ctx, op, http.MethodPatch, path, renameRequest{Name: name}, &record); err != nil {
		return model.Conversation{}, err
	}
	if err := record.validate(); err != nil {
		return model.Conversation{}, decodeError(op, err)
	}
	return record.toModel(), nil
}

func (c *Client) DeleteConversation(ctx context.Context, id model.ConversationID) error {
	const op = "delete conversation"
	path := fmt.Sprintf("/chat/conversations/%d", id)
	return c.doJSON(ctx, op, http.MethodDelete, path, nil, nil)
}
