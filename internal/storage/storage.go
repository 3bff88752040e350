package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cv-intake-go/internal/config"
)

// Storage aggregates every backing store of the intake pipeline.
type Storage struct {
	// Object storage for originals and extracted text.
	MinIO *MinIO

	// Message broker for pipeline events.
	RabbitMQ *RabbitMQ

	// Relational store for submissions and analyses.
	MySQL *MySQL

	// Key-value store for dedup sets and builder sessions.
	Redis *Redis

	// Builder session persistence, backed by Redis when available.
	Sessions SessionStore
}

// NewStorage initializes every configured component. A component that fails
// to initialize is logged and left nil; the call only errors when nothing
// could be brought up, so partial deployments stay usable.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	var minioLogger *log.Logger
	if cfg.Logger.Level == "debug" {
		minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
	} else {
		minioLogger = log.New(io.Discard, "", 0)
	}

	storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
	if err != nil {
		log.Printf("warning: failed to initialize MinIO: %v", err)
		initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("warning: failed to initialize RabbitMQ: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			log.Printf("warning: failed to initialize MySQL: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("warning: failed to initialize Redis: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	// Builder sessions live in Redis when it is up; otherwise they fall
	// back to process memory and do not survive restarts.
	if storage.Redis != nil {
		storage.Sessions = NewRedisSessionStore(storage.Redis)
	} else {
		storage.Sessions = NewMemorySessionStore(cfg.GetSessionTTL())
	}

	if storage.MinIO == nil && storage.RabbitMQ == nil && storage.MySQL == nil && storage.Redis == nil {
		return nil, fmt.Errorf("all storage components failed to initialize: %s", strings.Join(initErrors, "; "))
	}

	if len(initErrors) > 0 {
		log.Printf("warning: some storage components failed to initialize: %s", strings.Join(initErrors, "; "))
	}

	return storage, nil
}

// Close closes every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("failed to close RabbitMQ connection: %v", err)
		}
	}

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("failed to close MySQL connection: %v", err)
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("failed to close Redis connection: %v", err)
		}
	}
	// The MinIO client holds no long-lived connection that needs closing.
}
