package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepwise.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(db).SetTier(context.Background(), "alice", "PLUS"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	require.Equal(t, 1, n)

	tier, err := NewStore(db).GetTier(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "PLUS", tier)
}

func TestTier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tier, err := s.GetTier(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, DefaultTier, tier)

	require.NoError(t, s.SetTier(ctx, "bob", "PLUS"))
	require.NoError(t, s.SetTier(ctx, "bob", "FREE"))
	tier, err = s.GetTier(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "FREE", tier)
}

func TestHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	turns := []Turn{
		{AccountID: "a", ConversationID: "c1", ResponseID: "r1", Step: 1, Mode: "generate", Prompt: "p", Content: "one"},
		{AccountID: "a", ConversationID: "c2", ResponseID: "x1", Step: 1, Mode: "generate", Prompt: "p", Content: "other"},
		{AccountID: "a", ConversationID: "c1", ResponseID: "r2", Step: 1, Mode: "stuck", Prompt: "p", Content: "hint"},
		{AccountID: "a", ConversationID: "c1", ResponseID: "r3", Step: 2, Mode: "generate", Prompt: "p", Content: "two"},
	}
	for _, tr := range turns {
		require.NoError(t, s.AppendTurn(ctx, tr))
	}

	h, err := s.History(ctx, "a", "c1", "")
	require.NoError(t, err)
	require.Empty(t, h)

	h, err = s.History(ctx, "a", "c1", "r2")
	require.NoError(t, err)
	require.Len(t, h, 2)
	require.Equal(t, "one", h[0].Content)
	require.Equal(t, "hint", h[1].Content)

	_, err = s.History(ctx, "a", "c1", "x1")
	require.ErrorIs(t, err, ErrUnknownResponse)

	_, err = s.History(ctx, "someone-else", "c1", "r3")
	require.ErrorIs(t, err, ErrUnknownResponse)

	require.Error(t, s.AppendTurn(ctx, turns[0]), "response ids are unique")
}
