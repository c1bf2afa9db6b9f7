// Package storetest holds the behavior every store.Store implementation
// must share.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/store"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants() []conversation.Participant {
	return []conversation.Participant{
		{ID: "part_1", Role: conversation.RoleFirstSpeaker, Name: "First Speaker", Provider: "openai", Active: true},
		{ID: "part_2", Role: "critic", Name: "Critic", Provider: "anthropic", Active: true},
		{ID: "part_3", Role: conversation.RoleSynthesizer, Name: "Synthesizer", Provider: "google", Active: true},
	}
}

func newConversation(owner string) *conversation.Conversation {
	conv := conversation.New(owner, "Is remote work more productive?", participants())
	conv.Append(conversation.NewUserMessage("Is remote work more productive?"))
	return conv
}

// Run exercises newStore against the store contract.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		got, ok, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, conv.ID, got.ID)
		assert.Equal(t, "alice", got.OwnerID)
		assert.Equal(t, conv.Title, got.Title)
		assert.Equal(t, conversation.StatusActive, got.Status)
		assert.Equal(t, conv.Participants, got.Participants)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, conversation.RoleUser, got.Messages[0].Role)
		assert.WithinDuration(t, time.Time(conv.CreatedAt), time.Time(got.CreatedAt), time.Second)
	})

	t.Run("owner scoping", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		_, ok, err := s.GetConversation(ctx, "mallory", conv.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, s.UpdateStatus(ctx, conv.ID, "mallory", conversation.StatusCompleted), store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteConversation(ctx, "mallory", conv.ID), store.ErrNotFound)
		assert.ErrorIs(t, s.SaveConversation(ctx, conv, "mallory"), store.ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.GetConversation(ctx, "alice", "conv_missing")
		require.NoError(t, err)
		assert.False(t, ok)

		err = s.SaveMessage(ctx, conversation.NewUserMessage("x"), "conv_missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save message appends in order", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		p := participants()
		first := conversation.NewAssistantMessage(p[0], "Often yes.", conversation.Metadata{Stage: 1, ModelID: "gpt"})
		second := conversation.NewAssistantMessage(p[1], "Not always.", conversation.Metadata{Stage: 2})
		require.NoError(t, s.SaveMessage(ctx, first, conv.ID))
		require.NoError(t, s.SaveMessage(ctx, second, conv.ID))

		got, _, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, first.ID, got.Messages[1].ID)
		assert.Equal(t, second.ID, got.Messages[2].ID)
		assert.Equal(t, "openai", got.Messages[1].Provider)
		assert.Equal(t, conversation.RoleFirstSpeaker, got.Messages[1].Metadata.ParticipantRole)
		assert.Equal(t, "gpt", got.Messages[1].Metadata.ModelID)
		assert.Equal(t, 2, got.Messages[2].Metadata.Stage)
	})

	t.Run("save message is an upsert", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		msg := conversation.NewAssistantMessage(participants()[1], "draft", conversation.Metadata{})
		require.NoError(t, s.SaveMessage(ctx, msg, conv.ID))
		require.NoError(t, s.SaveMessage(ctx, msg, conv.ID))

		msg.Content = "final"
		require.NoError(t, s.SaveMessage(ctx, msg, conv.ID))

		got, _, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "final", got.Messages[1].Content)
	})

	t.Run("concurrent message saves", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				msg := conversation.NewAssistantMessage(participants()[1], "answer", conversation.Metadata{})
				assert.NoError(t, s.SaveMessage(ctx, msg, conv.ID))
			}()
		}
		wg.Wait()

		got, _, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		assert.Len(t, got.Messages, 9)
	})

	t.Run("update status", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		require.NoError(t, s.UpdateStatus(ctx, conv.ID, "alice", conversation.StatusCompleted))
		got, _, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		assert.Equal(t, conversation.StatusCompleted, got.Status)

		assert.ErrorIs(t, s.UpdateStatus(ctx, conv.ID, "alice", "archived"), store.ErrInvalidStatus)
	})

	t.Run("save conversation replaces", func(t *testing.T) {
		s := newStore(t)
		conv := newConversation("alice")
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		conv.Append(conversation.NewAssistantMessage(participants()[0], "Often yes.", conversation.Metadata{}))
		conv.SetStatus(conversation.StatusCompleted)
		conv.CurrentRound = 1
		require.NoError(t, s.SaveConversation(ctx, conv, "alice"))

		got, _, err := s.GetConversation(ctx, "alice", conv.ID)
		require.NoError(t, err)
		assert.Len(t, got.Messages, 2)
		assert.Equal(t, conversation.StatusCompleted, got.Status)
		assert.Equal(t, 1, got.CurrentRound)
	})

	t.Run("list and delete", func(t *testing.T) {
		s := newStore(t)
		older := newConversation("alice")
		older.CreatedAt = strfmt.DateTime(time.Now().Add(-time.Hour))
		newer := newConversation("alice")
		other := newConversation("bob")
		require.NoError(t, s.SaveConversation(ctx, older, "alice"))
		require.NoError(t, s.SaveConversation(ctx, newer, "alice"))
		require.NoError(t, s.SaveConversation(ctx, other, "bob"))

		list, err := s.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
		assert.Equal(t, 1, list[0].MessageCount)

		require.NoError(t, s.DeleteConversation(ctx, "alice", older.ID))
		_, ok, err := s.GetConversation(ctx, "alice", older.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		list, err = s.ListConversations(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		assert.ErrorIs(t, s.DeleteConversation(ctx, "alice", older.ID), store.ErrNotFound)
	})
}
