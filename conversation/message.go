package conversation

import (
	"time"

	"github.com/casualjim/symposium/pkg/uuidx"
	"github.com/go-openapi/strfmt"
)

// MessageRole is the chat role of a transcript entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Metadata describes who produced a message and how.
type Metadata struct {
	ParticipantID   string `json:"participant_id,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	ParticipantRole string `json:"participant_role,omitempty"`
	Provider        string `json:"provider,omitempty"`
	ModelID         string `json:"model_id,omitempty"`
	Stage           int    `json:"stage,omitempty"`
	Attempts        int    `json:"attempts,omitempty"`
	Error           string `json:"error,omitempty"`
	IsErrorMessage  bool   `json:"is_error_message,omitempty"`
	RetryReason     string `json:"retry_reason,omitempty"`
}

// Message is one immutable transcript entry.
type Message struct {
	ID        string          `json:"id"`
	Role      MessageRole     `json:"role"`
	Content   string          `json:"content"`
	Provider  string          `json:"provider,omitempty"`
	Metadata  Metadata        `json:"metadata"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// NewUserMessage creates a user message carrying the discussion question or
// a stage prompt.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuidx.Prefixed("msg"),
		Role:      RoleUser,
		Content:   content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuidx.Prefixed("msg"),
		Role:      RoleSystem,
		Content:   content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// NewAssistantMessage creates an assistant message attributed to the given
// participant.
func NewAssistantMessage(p Participant, content string, meta Metadata) Message {
	meta.ParticipantID = p.ID
	meta.ParticipantName = p.Name
	meta.ParticipantRole = p.Role
	meta.Provider = p.Provider
	return Message{
		ID:        uuidx.Prefixed("msg"),
		Role:      RoleAssistant,
		Content:   content,
		Provider:  p.Provider,
		Metadata:  meta,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// IsError reports whether the message is an error placeholder rather than
// a real answer.
func (m Message) IsError() bool {
	return m.Metadata.IsErrorMessage || m.Metadata.Error != ""
}
