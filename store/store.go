// Package store persists conversations and their transcripts.
//
// Every operation is scoped by owner: a conversation saved for one owner is
// invisible to another. SaveMessage is an upsert keyed by message id, so
// replaying a save is harmless.
package store

import (
	"context"
	"errors"

	"github.com/casualjim/symposium/conversation"
	"github.com/go-openapi/strfmt"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrInvalidStatus = errors.New("invalid conversation status")
)

// Summary is the list view of a conversation.
type Summary struct {
	ID           string              `json:"id"`
	OwnerID      string              `json:"owner_id"`
	Title        string              `json:"title"`
	Status       conversation.Status `json:"status"`
	MessageCount int                 `json:"message_count"`
	CreatedAt    strfmt.DateTime     `json:"created_at"`
	UpdatedAt    strfmt.DateTime     `json:"updated_at"`
}

// Store persists conversations per owner. Implementations are safe for
// concurrent use; an owner never sees or changes another owner's data.
type Store interface {
	// SaveConversation creates or replaces the conversation, including its
	// participants and messages.
	SaveConversation(ctx context.Context, conv *conversation.Conversation, ownerID string) error
	// GetConversation returns the conversation; the bool is false when it
	// does not exist for ownerID.
	GetConversation(ctx context.Context, ownerID, id string) (*conversation.Conversation, bool, error)
	// SaveMessage inserts msg or replaces the message with the same id.
	SaveMessage(ctx context.Context, msg conversation.Message, conversationID string) error
	UpdateStatus(ctx context.Context, id, ownerID string, status conversation.Status) error
	// ListConversations returns the owner's conversations, newest first.
	ListConversations(ctx context.Context, ownerID string) ([]Summary, error)
	DeleteConversation(ctx context.Context, ownerID, id string) error
}

// Summarize builds the list view of conv.
func Summarize(conv *conversation.Conversation) Summary {
	return Summary{
		ID:           conv.ID,
		OwnerID:      conv.OwnerID,
		Title:        conv.Title,
		Status:       conv.Status,
		MessageCount: len(conv.Messages),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
}
