package session

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(now *time.Time) *Store {
	return newStoreWithClock(24*time.Hour, slog.New(slog.DiscardHandler), func() time.Time { return *now })
}

func TestStoreCreateAndGet(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	userID := uuid.New()

	id := store.Create(userID, "user@example.com")
	require.NotEmpty(t, id)

	sess, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, "user@example.com", sess.Email)
	assert.Equal(t, now, sess.LastActivity)
}

func TestStoreTouchExtendsIdleWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id := store.Create(uuid.New(), "user@example.com")

	now = now.Add(23 * time.Hour)
	store.Touch(id)

	now = now.Add(23 * time.Hour)
	_, ok := store.Get(id)
	assert.True(t, ok, "touched session should survive another idle window")
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id := store.Create(uuid.New(), "user@example.com")

	now = now.Add(24*time.Hour + time.Minute)
	_, ok := store.Get(id)
	assert.False(t, ok)

	removed := store.sweep()
	assert.Equal(t, 1, removed)
	assert.Empty(t, store.sessions)
	assert.Empty(t, store.userIndex)
}

func TestStoreInvalidateUserRemovesAllSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	userID := uuid.New()

	first := store.Create(userID, "user@example.com")
	second := store.Create(userID, "user@example.com")
	other := store.Create(uuid.New(), "other@example.com")

	store.InvalidateUser(userID)

	_, ok := store.Get(first)
	assert.False(t, ok)
	_, ok = store.Get(second)
	assert.False(t, ok)
	_, ok = store.Get(other)
	assert.True(t, ok, "other users' sessions must be untouched")
}
