package handler

import (
	"context"
	"fmt"
	"time"

	"cv-intake-go/internal/builder"
	"cv-intake-go/internal/types"
)

// BuilderHandler exposes the interactive CV builder flow.
type BuilderHandler struct {
	builder *builder.Builder
}

// NewBuilderHandler creates a handler over the given builder.
func NewBuilderHandler(b *builder.Builder) *BuilderHandler {
	return &BuilderHandler{builder: b}
}

// BuilderStartRequest opens a new builder session.
type BuilderStartRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

// BuilderAnswerRequest carries one user message into a session.
type BuilderAnswerRequest struct {
	Message string `json:"message"`
}

// BuilderSessionResponse is the stored state of one session.
type BuilderSessionResponse struct {
	SessionID    string                `json:"session_id"`
	UserID       string                `json:"user_id"`
	Language     string                `json:"language"`
	CurrentStep  types.BuilderStep     `json:"current_step"`
	CV           *types.StructuredCV   `json:"current_cv"`
	Progress     types.BuilderProgress `json:"progress"`
	LastActivity string                `json:"last_activity"`
}

// HandleStartSession opens a session and returns the welcome prompt.
func (h *BuilderHandler) HandleStartSession(ctx context.Context, req BuilderStartRequest) (*builder.Reply, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return h.builder.StartSession(ctx, req.UserID, req.Language)
}

// HandleAnswer applies one answer to a session.
func (h *BuilderHandler) HandleAnswer(ctx context.Context, sessionID string, req BuilderAnswerRequest) (*builder.Reply, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}
	return h.builder.Answer(ctx, sessionID, req.Message)
}

// HandleGetSession returns a session with its draft CV and progress.
func (h *BuilderHandler) HandleGetSession(ctx context.Context, sessionID string) (*BuilderSessionResponse, error) {
	session, progress, err := h.builder.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &BuilderSessionResponse{
		SessionID:    session.SessionID,
		UserID:       session.UserID,
		Language:     session.Language,
		CurrentStep:  session.CurrentStep,
		CV:           session.CV,
		Progress:     progress,
		LastActivity: session.LastActivity.Format(time.RFC3339),
	}, nil
}

// HandleDeleteSession discards a session.
func (h *BuilderHandler) HandleDeleteSession(ctx context.Context, sessionID string) error {
	return h.builder.DeleteSession(ctx, sessionID)
}
