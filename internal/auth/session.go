package auth

import (
	"sync"

	"moviedb/pkg/models"
)

// Sessions holds the single process-wide login. It is never persisted.
type Sessions struct {
	mu  sync.RWMutex
	cur *models.Session
}

func (s *Sessions) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return models.Session{}, false
	}
	return *s.cur, true
}

// Set replaces any existing session.
func (s *Sessions) Set(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &sess
}

// Clear ends the session and returns it, if there was one.
func (s *Sessions) Clear() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return models.Session{}, false
	}
	prev := *s.cur
	s.cur = nil
	return prev, true
}

// ClearIf ends the session only when it belongs to username.
func (s *Sessions) ClearIf(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.Username != username {
		return false
	}
	s.cur = nil
	return true
}
