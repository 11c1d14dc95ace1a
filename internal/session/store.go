package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Store implementations when no session exists.
var ErrNotFound = errors.New("session not found")

// Store is the persistence port for analysis sessions. The orchestrator saves
// through it after every durable state transition so a restart reproduces the
// same run statuses and result payloads.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
