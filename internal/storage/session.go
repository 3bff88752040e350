package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/types"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a builder session does not exist
// or has expired.
var ErrSessionNotFound = errors.New("builder session not found")

// SessionStore persists interactive builder sessions. Implementations must
// be safe for concurrent use.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*types.BuilderSession, error)
	PutSession(ctx context.Context, session *types.BuilderSession) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// RedisSessionStore keeps builder sessions in Redis as JSON values with a
// sliding TTL. Every PutSession refreshes the expiry.
type RedisSessionStore struct {
	redis *Redis
}

// NewRedisSessionStore creates a session store backed by the given adapter.
func NewRedisSessionStore(r *Redis) *RedisSessionStore {
	return &RedisSessionStore{redis: r}
}

func builderSessionKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyBuilderSession, sessionID)
}

// GetSession loads a session by ID. Returns ErrSessionNotFound when the key
// is missing or expired.
func (s *RedisSessionStore) GetSession(ctx context.Context, sessionID string) (*types.BuilderSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	raw, err := s.redis.Get(ctx, builderSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load builder session %s: %w", sessionID, err)
	}

	var session types.BuilderSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to decode builder session %s: %w", sessionID, err)
	}
	return &session, nil
}

// PutSession stores a session and refreshes its TTL.
func (s *RedisSessionStore) PutSession(ctx context.Context, session *types.BuilderSession) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("session and session ID are required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode builder session %s: %w", session.SessionID, err)
	}

	return s.redis.Set(ctx, builderSessionKey(session.SessionID), string(data), s.redis.GetSessionTTL())
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	return s.redis.Del(ctx, builderSessionKey(sessionID))
}

// MemorySessionStore is an in-process SessionStore with TTL eviction on
// read. Used in tests and single-node runs without Redis.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySessionEntry
	ttl      time.Duration
}

type memorySessionEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory store with the given session TTL.
// A non-positive TTL defaults to one hour.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemorySessionStore{
		sessions: make(map[string]memorySessionEntry),
		ttl:      ttl,
	}
}

func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*types.BuilderSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	var session types.BuilderSession
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode builder session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (s *MemorySessionStore) PutSession(_ context.Context, session *types.BuilderSession) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("session and session ID are required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode builder session %s: %w", session.SessionID, err)
	}

	s.mu.Lock()
	s.sessions[session.SessionID] = memorySessionEntry{
		data:      data,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
