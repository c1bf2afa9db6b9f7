package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Kind is the discriminator written to the "type" field.
type Kind string

const (
	KindDiscussionStarted   Kind = "discussionStarted"
	KindRoundStarted        Kind = "roundStarted"
	KindMessageReceived     Kind = "messageReceived"
	KindFirstSpeakerRetry   Kind = "firstSpeakerRetry"
	KindDiscussionCompleted Kind = "discussionCompleted"
	KindDiscussionError     Kind = "discussionError"
)

// Event is implemented by the six event types of this package only.
type Event interface {
	Kind() Kind
	Meta() Envelope
	sealed()
}

// Envelope is the addressing information shared by every event.
type Envelope struct {
	OwnerID        string          `json:"owner_id"`
	ConversationID string          `json:"conversation_id"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(ownerID, conversationID string) Envelope {
	return Envelope{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Timestamp:      strfmt.DateTime(time.Now()),
	}
}

func (e Envelope) Meta() Envelope { return e }
func (Envelope) sealed()          {}

// DiscussionStarted is published once, before the first speaker is asked.
type DiscussionStarted struct {
	Envelope
	Question     string                     `json:"question"`
	Participants []conversation.Participant `json:"participants"`
}

func (DiscussionStarted) Kind() Kind { return KindDiscussionStarted }

// RoundStarted marks the entry into a stage.
type RoundStarted struct {
	Envelope
	Stage int    `json:"stage"`
	State string `json:"state"`
	// Participants lists the ids of the participants speaking in this stage.
	Participants []string `json:"participants"`
}

func (RoundStarted) Kind() Kind { return KindRoundStarted }

// MessageReceived carries an answer appended to the transcript.
type MessageReceived struct {
	Envelope
	Message conversation.Message `json:"message"`
}

func (MessageReceived) Kind() Kind { return KindMessageReceived }

// FirstSpeakerRetry reports a failed opening attempt.
type FirstSpeakerRetry struct {
	Envelope
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Reason      string `json:"reason"`
}

func (FirstSpeakerRetry) Kind() Kind { return KindFirstSpeakerRetry }

// DiscussionCompleted carries the final transcript.
type DiscussionCompleted struct {
	Envelope
	Messages     []conversation.Message `json:"messages"`
	MessageCount int                    `json:"message_count"`
}

func (DiscussionCompleted) Kind() Kind { return KindDiscussionCompleted }

// DiscussionError is published when the discussion was aborted.
type DiscussionError struct {
	Envelope
	Error string `json:"error"`
}

func (DiscussionError) Kind() Kind { return KindDiscussionError }

// ErrUnknownEvent is returned by FromJSON for an unrecognized "type" field.
var ErrUnknownEvent = errors.New("unknown event type")

// ToJSON encodes evt with its kind in the "type" field.
func ToJSON(evt Event) ([]byte, error) {
	if evt == nil {
		return nil, errors.New("event is nil")
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", evt.Kind(), err)
	}
	return sjson.SetBytes(b, "type", string(evt.Kind()))
}

// FromJSON restores the concrete event encoded by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid event json")
	}
	kind := gjson.GetBytes(data, "type")
	if !kind.Exists() {
		return nil, errors.New("event json has no type")
	}
	if !gjson.GetBytes(data, "conversation_id").Exists() {
		return nil, errors.New("event json has no conversation_id")
	}

	switch Kind(kind.String()) {
	case KindDiscussionStarted:
		return decode[DiscussionStarted](data)
	case KindRoundStarted:
		return decode[RoundStarted](data)
	case KindMessageReceived:
		return decode[MessageReceived](data)
	case KindFirstSpeakerRetry:
		return decode[FirstSpeakerRetry](data)
	case KindDiscussionCompleted:
		return decode[DiscussionCompleted](data)
	case KindDiscussionError:
		return decode[DiscussionError](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind.String())
	}
}

func decode[T Event](data []byte) (Event, error) {
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", evt.Kind(), err)
	}
	return evt, nil
}
