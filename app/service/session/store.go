package session

import (
	"context"
	"errors"
)

var ErrLocked = errors.New("session is busy")

// Store keeps one Session per user identifier. Get never fails for an
// unknown or expired id; it returns a fresh initial session instead.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Locker provides per-session mutual exclusion for one conversation turn.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}
