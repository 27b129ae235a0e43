package dialogue

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionNotFound is returned when a session id is unknown to the store.
// It is the only engine error surfaced to callers as a hard failure.
var ErrSessionNotFound = errors.New("dialogue: session not found")

// SessionStore keeps sessions by id. Lifecycle (eviction, durability) is a
// policy decision of the host; the engine only creates, reads and updates.
// Implementations must allow concurrent access across distinct keys without
// blocking unrelated sessions.
type SessionStore interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, sess *Session) error
}

// InMemoryStore is a process-lifetime session store backed by a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Create stores a new session. Existing ids are overwritten; ids are opaque
// UUIDs so collisions do not occur in practice.
func (s *InMemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a copy of the session so turn handlers never mutate shared
// state before Update.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update persists the mutated session.
func (s *InMemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Len reports the number of live sessions. Used by tests and diagnostics.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
