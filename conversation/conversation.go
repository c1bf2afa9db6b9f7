package conversation

import (
	"slices"
	"time"

	"github.com/casualjim/symposium/pkg/uuidx"
	"github.com/go-openapi/strfmt"
)

// Status is the lifecycle status of a conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Conversation is the ordered transcript of one discussion.
type Conversation struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Title        string          `json:"title"`
	Messages     []Message       `json:"messages"`
	Participants []Participant   `json:"participants"`
	Status       Status          `json:"status"`
	CurrentRound int             `json:"current_round"`
	MaxRounds    int             `json:"max_rounds"`
	CreatedAt    strfmt.DateTime `json:"created_at"`
	UpdatedAt    strfmt.DateTime `json:"updated_at"`
}

// New creates an active conversation owned by ownerID.
func New(ownerID, title string, participants []Participant) *Conversation {
	now := strfmt.DateTime(time.Now())
	return &Conversation{
		ID:           uuidx.Prefixed("conv"),
		OwnerID:      ownerID,
		Title:        title,
		Messages:     make([]Message, 0, len(participants)+1),
		Participants: slices.Clone(participants),
		Status:       StatusActive,
		MaxRounds:    1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Append adds a message to the end of the transcript.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.touch()
}

// SetStatus records a status transition.
func (c *Conversation) SetStatus(status Status) {
	c.Status = status
	c.touch()
}

func (c *Conversation) touch() {
	c.UpdatedAt = strfmt.DateTime(time.Now())
}

// AssistantMessages returns the assistant entries in transcript order.
func (c *Conversation) AssistantMessages() []Message {
	var result []Message
	for _, m := range c.Messages {
		if m.Role == RoleAssistant {
			result = append(result, m)
		}
	}
	return result
}

// Question returns the content of the first user message.
func (c *Conversation) Question() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// FirstSpeaker returns the participant that leads the discussion.
func (c *Conversation) FirstSpeaker() (Participant, bool) {
	for _, p := range c.Participants {
		if p.IsFirstSpeaker() {
			return p, true
		}
	}
	return Participant{}, false
}

// Synthesizer returns the participant that closes the discussion, if any.
func (c *Conversation) Synthesizer() (Participant, bool) {
	for _, p := range c.Participants {
		if p.IsSynthesizer() {
			return p, true
		}
	}
	return Participant{}, false
}

// Middle returns the active participants that are neither the first speaker
// nor the synthesizer, in declared order.
func (c *Conversation) Middle() []Participant {
	var result []Participant
	for _, p := range c.Participants {
		if p.Active && !p.IsFirstSpeaker() && !p.IsSynthesizer() {
			result = append(result, p)
		}
	}
	return result
}

// Clone returns a copy that shares no slices with the receiver.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	cp.Participants = slices.Clone(c.Participants)
	return &cp
}
