package storage

import (
	"sync"
)

// SessionStorage provides in-memory storage of per-user session objects.
type SessionStorage[T any] struct {
	mu       sync.RWMutex
	sessions map[string]T
}

// NewSessionStorage creates a new SessionStorage.
func NewSessionStorage[T any]() *SessionStorage[T] {
	return &SessionStorage[T]{
		sessions: make(map[string]T),
	}
}

// Get retrieves the session for a given user ID.
func (s *SessionStorage[T]) Get(userID string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// GetOrCreate returns the stored session or stores the one built by create.
// create runs at most once per user even under concurrent calls.
func (s *SessionStorage[T]) GetOrCreate(userID string, create func() T) T {
	if session, ok := s.Get(userID); ok {
		return session
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session
	}
	session := create()
	s.sessions[userID] = session
	return session
}

// Delete removes the session for a given user ID.
func (s *SessionStorage[T]) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of stored sessions.
func (s *SessionStorage[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
