package memory

import (
	"context"
	"sort"
	"sync"
)

// SessionTracker is an in-memory implementation of app.SessionTracker.
type SessionTracker struct {
	mu       sync.RWMutex
	sessions map[string]int
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		sessions: make(map[string]int),
	}
}

// Begin counts nested sessions so a student reconnecting on a second
// connection stays listed until both end.
func (s *SessionTracker) Begin(_ context.Context, student string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[student]++
	return nil
}

func (s *SessionTracker) End(_ context.Context, student string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[student] <= 1 {
		delete(s.sessions, student)
		return nil
	}
	s.sessions[student]--
	return nil
}

func (s *SessionTracker) Active(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for student := range s.sessions {
		out = append(out, student)
	}
	sort.Strings(out)
	return out, nil
}
