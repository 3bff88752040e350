package storage

import (
	"context"
	"testing"
	"time"

	"cv-intake-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	session := &types.BuilderSession{
		SessionID:    "sess-1",
		UserID:       "user-1",
		Language:     "en",
		CV:           types.NewStructuredCV(),
		CurrentStep:  types.StepName,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	session.CV.PersonalInfo.FullName = "Lina Khoury"

	require.NoError(t, store.PutSession(ctx, session))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, types.StepName, got.CurrentStep)
	require.NotNil(t, got.CV)
	assert.Equal(t, "Lina Khoury", got.CV.PersonalInfo.FullName)
}

func TestMemorySessionStore_MissingSession(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)

	_, err := store.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_ExpiredSessionEvicted(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	session := &types.BuilderSession{SessionID: "sess-exp", CurrentStep: types.StepWelcome}
	require.NoError(t, store.PutSession(ctx, session))

	// Force expiry without waiting.
	store.mu.Lock()
	entry := store.sessions["sess-exp"]
	entry.expiresAt = time.Now().Add(-time.Second)
	store.sessions["sess-exp"] = entry
	store.mu.Unlock()

	_, err := store.GetSession(ctx, "sess-exp")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.PutSession(ctx, &types.BuilderSession{SessionID: "sess-del"}))
	require.NoError(t, store.DeleteSession(ctx, "sess-del"))

	_, err := store.GetSession(ctx, "sess-del")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteSession(ctx, "sess-del"))
}

func TestMemorySessionStore_RejectsEmptyID(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	assert.Error(t, store.PutSession(ctx, &types.BuilderSession{}))
	assert.Error(t, store.PutSession(ctx, nil))
	_, err := store.GetSession(ctx, "")
	assert.Error(t, err)
}

func TestBuilderSessionKeyFormat(t *testing.T) {
	assert.Equal(t, "app:builder:session:abc-123", builderSessionKey("abc-123"))
}
