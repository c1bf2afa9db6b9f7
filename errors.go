package symposium

import (
	"errors"

	"github.com/casualjim/symposium/conversation"
)

var (
	// ErrFirstSpeakerFailed is returned when the opening answer could not be
	// obtained within the first-speaker retry budget.
	ErrFirstSpeakerFailed = errors.New("first speaker failed to respond")

	ErrEmptyQuestion = errors.New("a discussion needs a question")

	ErrInsufficientParticipants = conversation.ErrInsufficientParticipants
	ErrMissingFirstSpeaker      = conversation.ErrMissingFirstSpeaker
	ErrMultipleFirstSpeakers    = conversation.ErrMultipleFirstSpeakers
	ErrMultipleSynthesizers     = conversation.ErrMultipleSynthesizers
)
