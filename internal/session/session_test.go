package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bwise1/bookgroups/internal/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	fixed := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	s := New("abc")
	s.SearchKeyword = "demian"
	s.SetPage(3)
	s.ScrollPosition = 840
	s.Authenticated = true
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, fixed, s.UpdatedAt)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got.SearchPage = 9
	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, again.SearchPage, "store keeps its own copy")

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, &State{}))
}

func TestLoad_DefaultsForUnknownSession(t *testing.T) {
	s, err := Load(context.Background(), NewMemoryStore(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, &State{ID: "fresh", SearchPage: 1}, s)
}

func TestState_PageCounter(t *testing.T) {
	s := &State{}
	assert.Equal(t, 1, s.Page(), "zero value starts at the first page")
	s.SetPage(4)
	assert.Equal(t, 4, s.Page())
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := New("ctx")
	got, ok := FromContext(WithState(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}

// Runs against a real database when SESSION_TEST_DSN is set.
func TestPgxStore(t *testing.T) {
	dsn := os.Getenv("SESSION_TEST_DSN")
	if dsn == "" {
		t.Skip("SESSION_TEST_DSN not set")
	}
	ctx := context.Background()

	database, err := db.New(ctx, dsn)
	require.NoError(t, err)
	defer database.Close()

	store, err := NewPgxStore(ctx, database)
	require.NoError(t, err)

	id := uuid.NewString()
	defer store.Delete(ctx, id)

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	s := New(id)
	s.SearchKeyword = "siddhartha"
	s.SetPage(2)
	require.NoError(t, store.Save(ctx, s))
	assert.False(t, s.UpdatedAt.IsZero())

	s.ScrollPosition = 120
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "siddhartha", got.SearchKeyword)
	assert.Equal(t, 2, got.SearchPage)
	assert.Equal(t, 120, got.ScrollPosition)
}

func TestLocks_SerializeOneSession(t *testing.T) {
	locks := NewLocks()

	unlock := locks.Lock("a")
	acquired, done := make(chan struct{}), make(chan struct{})
	go func() {
		release := locks.Lock("a")
		close(acquired)
		release()
		close(done)
	}()

	select {
	case <-acquired:
		t.Fatal("second request of the session ran concurrently")
	case <-time.After(20 * time.Millisecond):
	}

	other := locks.Lock("b")
	other()

	unlock()
	<-acquired
	<-done
	assert.Zero(t, locks.Len(), "released locks are dropped")
}
