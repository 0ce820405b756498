package rpc

import (
	"sync"

	uuid "github.com/satori/go.uuid"
)

// SessionIDHeader is the header name clients use to present and receive
// the RPC session id, both directions.
const SessionIDHeader = "X-Transmission-Session-Id"

// SessionID is a server-generated CSRF token rotated once per process
// lifetime, matched against every non-OPTIONS request.
type SessionID struct {
	mu    sync.RWMutex
	value string
}

// NewSessionID generates a fresh session id.
func NewSessionID() *SessionID {
	s := &SessionID{}
	s.Rotate()
	return s
}

// Rotate replaces the current session id with a new random one, returning
// it.
func (s *SessionID) Rotate() string {
	v := uuid.NewV4().String()
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	return v
}

// Value returns the current session id.
func (s *SessionID) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Matches reports whether candidate equals the current session id.
func (s *SessionID) Matches(candidate string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return candidate != "" && candidate == s.value
}
