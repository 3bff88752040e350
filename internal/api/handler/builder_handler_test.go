package handler

import (
	"context"
	"testing"
	"time"

	"cv-intake-go/internal/builder"
	"cv-intake-go/internal/storage"
	"cv-intake-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilderHandler() *BuilderHandler {
	return NewBuilderHandler(builder.New(storage.NewMemorySessionStore(time.Minute), nil))
}

func TestBuilderHandler_StartAndAnswer(t *testing.T) {
	h := newTestBuilderHandler()
	ctx := context.Background()

	start, err := h.HandleStartSession(ctx, BuilderStartRequest{UserID: "user-1", Language: "english"})
	require.NoError(t, err)
	assert.Equal(t, types.StepName, start.Step)

	reply, err := h.HandleAnswer(ctx, start.SessionID, BuilderAnswerRequest{Message: "Lina Khoury"})
	require.NoError(t, err)
	assert.Equal(t, types.StepEmail, reply.Step)

	session, err := h.HandleGetSession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Lina Khoury", session.CV.PersonalInfo.FullName)
	assert.Equal(t, 1, session.Progress.Completed)
}

func TestBuilderHandler_StartRequiresUserID(t *testing.T) {
	h := newTestBuilderHandler()

	_, err := h.HandleStartSession(context.Background(), BuilderStartRequest{Language: "english"})
	assert.Error(t, err)
}

func TestBuilderHandler_AnswerRequiresMessage(t *testing.T) {
	h := newTestBuilderHandler()
	ctx := context.Background()

	start, err := h.HandleStartSession(ctx, BuilderStartRequest{UserID: "user-2"})
	require.NoError(t, err)

	_, err = h.HandleAnswer(ctx, start.SessionID, BuilderAnswerRequest{})
	assert.Error(t, err)
}

func TestBuilderHandler_UnknownSession(t *testing.T) {
	h := newTestBuilderHandler()

	_, err := h.HandleGetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestBuilderHandler_DeleteSession(t *testing.T) {
	h := newTestBuilderHandler()
	ctx := context.Background()

	start, err := h.HandleStartSession(ctx, BuilderStartRequest{UserID: "user-3"})
	require.NoError(t, err)

	require.NoError(t, h.HandleDeleteSession(ctx, start.SessionID))

	_, err = h.HandleGetSession(ctx, start.SessionID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
