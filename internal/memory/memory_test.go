package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration, maxMessages int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr()+"/0", ttl, maxMessages)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, 30*time.Minute, 0)

	session, err := store.LoadSession(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Equal(t, 0, session.Metadata.MessageCount)

	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendMessages(ctx, "abc",
		Message{Role: RoleUser, Content: "Mijn naam is Jan", Timestamp: t0},
		Message{Role: RoleAssistant, Content: "Waar woont u?", Timestamp: t0.Add(time.Second)},
	))

	session, err = store.LoadSession(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "Mijn naam is Jan", session.Messages[0].Content)
	assert.Equal(t, RoleAssistant, session.Messages[1].Role)
	assert.Equal(t, 2, session.Metadata.MessageCount)
	assert.True(t, session.Metadata.StartedAt.Equal(t0))
	assert.True(t, session.Metadata.LastActivity.Equal(t0.Add(time.Second)))

	assert.Equal(t, 30*time.Minute, mr.TTL("intake:session:abc:messages"))

	exists, err := store.SessionExists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.ClearSession(ctx, "abc"))
	exists, err = store.SessionExists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStoreTrimsToMaxMessages(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, time.Minute, 3)

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.AppendMessages(ctx, "s", Message{Role: RoleUser, Content: text}))
	}

	session, err := store.LoadSession(ctx, "s")
	require.NoError(t, err)
	require.Len(t, session.Messages, 3)
	assert.Equal(t, "c", session.Messages[0].Content)
	assert.Equal(t, "e", session.Messages[2].Content)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore("not a url", time.Minute, 0)
	require.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore("redis://"+addr, time.Minute, 0)
	require.Error(t, err)
}

func TestInMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Minute, 0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.AppendMessages(ctx, "s", Message{Role: RoleUser, Content: "hoi"}))
	exists, _ := store.SessionExists(ctx, "s")
	assert.True(t, exists)

	now = now.Add(2 * time.Minute)
	exists, _ = store.SessionExists(ctx, "s")
	assert.False(t, exists)

	session, err := store.LoadSession(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
}

func TestManagerHistory(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(0, 0), 0)

	history, err := m.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, m.RecordTurn(ctx, "s", "Mijn naam is Jan", "Waar woont u?"))
	require.NoError(t, m.RecordTurn(ctx, "s", "In Utrecht", "Dank u."))

	history, err = m.History(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t,
		"Gebruiker: Mijn naam is Jan\nCoördinator: Waar woont u?\nGebruiker: In Utrecht\nCoördinator: Dank u.",
		history)
}

func TestManagerHistoryLimit(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(0, 0), 2)

	require.NoError(t, m.RecordTurn(ctx, "s", "een", "twee"))
	require.NoError(t, m.RecordTurn(ctx, "s", "drie", "vier"))

	history, err := m.History(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "Gebruiker: drie\nCoördinator: vier", history)
}

func TestManagerRecordSkipsEmptyLines(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0, 0)
	m := NewManager(store, 0)

	require.NoError(t, m.RecordTurn(ctx, "s", "", "Ik hoorde niets."))

	session, err := store.LoadSession(ctx, "s")
	require.NoError(t, err)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, RoleAssistant, session.Messages[0].Role)

	require.NoError(t, m.ClearSession(ctx, "s"))
	require.NoError(t, m.Close())
}
