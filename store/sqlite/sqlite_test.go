package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/store"
	"github.com/casualjim/symposium/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestStore_FilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "symposium.db")

	s, err := Open(dsn)
	require.NoError(t, err)
	conv := conversation.New("alice", "persisted", nil)
	conv.Append(conversation.NewUserMessage("Is remote work more productive?"))
	require.NoError(t, s.SaveConversation(ctx, conv, "alice"))
	require.NoError(t, s.Close())

	s, err = Open(dsn)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.GetConversation(ctx, "alice", conv.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "persisted", got.Title)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Is remote work more productive?", got.Messages[0].Content)
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.migrate())
	require.NoError(t, s.migrate())
}
