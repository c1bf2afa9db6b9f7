package events

import (
	"testing"

	"github.com/casualjim/symposium/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleMessage() conversation.Message {
	critic := conversation.Participant{ID: "part_2", Role: "critic", Name: "Critic", Provider: "anthropic"}
	return conversation.NewAssistantMessage(critic, "Not always.", conversation.Metadata{Stage: 2, ModelID: "claude"})
}

func TestToJSON(t *testing.T) {
	env := NewEnvelope("owner-1", "conv_1")

	t.Run("message received", func(t *testing.T) {
		msg := sampleMessage()
		data, err := ToJSON(MessageReceived{Envelope: env, Message: msg})
		require.NoError(t, err)

		result := gjson.ParseBytes(data)
		assert.Equal(t, "messageReceived", result.Get("type").String())
		assert.Equal(t, "owner-1", result.Get("owner_id").String())
		assert.Equal(t, "conv_1", result.Get("conversation_id").String())
		assert.True(t, result.Get("timestamp").Exists())
		assert.Equal(t, msg.ID, result.Get("message.id").String())
		assert.Equal(t, "critic", result.Get("message.metadata.participant_role").String())
	})

	t.Run("discussion error", func(t *testing.T) {
		data, err := ToJSON(DiscussionError{Envelope: env, Error: "first speaker failed"})
		require.NoError(t, err)
		assert.Equal(t, "discussionError", gjson.GetBytes(data, "type").String())
		assert.Equal(t, "first speaker failed", gjson.GetBytes(data, "error").String())
	})

	t.Run("nil", func(t *testing.T) {
		_, err := ToJSON(nil)
		require.Error(t, err)
	})
}

func TestFromJSON(t *testing.T) {
	env := NewEnvelope("owner-1", "conv_1")
	msg := sampleMessage()

	tests := []struct {
		name  string
		event Event
	}{
		{"discussion started", DiscussionStarted{Envelope: env, Question: "Q?", Participants: []conversation.Participant{{ID: "part_1", Role: "first_speaker", Active: true}}}},
		{"round started", RoundStarted{Envelope: env, Stage: 2, State: "stage2", Participants: []string{"part_2", "part_3"}}},
		{"message received", MessageReceived{Envelope: env, Message: msg}},
		{"first speaker retry", FirstSpeakerRetry{Envelope: env, Attempt: 1, MaxAttempts: 3, Reason: "empty response"}},
		{"discussion completed", DiscussionCompleted{Envelope: env, Messages: []conversation.Message{msg}, MessageCount: 1}},
		{"discussion error", DiscussionError{Envelope: env, Error: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ToJSON(tt.event)
			require.NoError(t, err)

			evt, err := FromJSON(data)
			require.NoError(t, err)
			assert.Equal(t, tt.event.Kind(), evt.Kind())
			assert.IsType(t, tt.event, evt)
			assert.Equal(t, "conv_1", evt.Meta().ConversationID)
			assert.Equal(t, "owner-1", evt.Meta().OwnerID)
		})
	}

	t.Run("payload survives", func(t *testing.T) {
		data, err := ToJSON(FirstSpeakerRetry{Envelope: env, Attempt: 2, MaxAttempts: 3, Reason: "empty"})
		require.NoError(t, err)
		evt, err := FromJSON(data)
		require.NoError(t, err)
		retry := evt.(FirstSpeakerRetry)
		assert.Equal(t, 2, retry.Attempt)
		assert.Equal(t, 3, retry.MaxAttempts)
		assert.Equal(t, "empty", retry.Reason)
	})
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "invalid"},
		{"missing type", `{"conversation_id": "conv_1"}`},
		{"unknown type", `{"type": "wrong", "conversation_id": "conv_1"}`},
		{"missing conversation", `{"type": "discussionError"}`},
		{"bad field type", `{"type": "roundStarted", "conversation_id": "conv_1", "stage": "two"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			require.Error(t, err)
		})
	}

	_, err := FromJSON([]byte(`{"type": "wrong", "conversation_id": "conv_1"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
