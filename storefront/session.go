package storefront

import (
	"context"
	"sync"
)

// Session is the signed-in state shared by the pages. It is refreshed
// explicitly rather than pushed.
type Session struct {
	client *Client

	mu   sync.RWMutex
	info SessionInfo
}

func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// Refresh asks the API who is signed in.
func (s *Session) Refresh(ctx context.Context) error {
	info, err := s.client.Session(ctx)
	if err != nil {
		return err
	}
	s.set(*info)
	return nil
}

func (s *Session) set(info SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

func (s *Session) clear() {
	s.set(SessionInfo{})
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.User
}

func (s *Session) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Profile
}

func (s *Session) SignedIn() bool {
	return s.User() != nil
}

type GuardResult int

const (
	Unauthenticated GuardResult = iota
	Unauthorized
	Authorized
)

// RequireRole is the one guard every page uses.
func RequireRole(session *Session, role string) GuardResult {
	if session == nil || !session.SignedIn() {
		return Unauthenticated
	}
	if p := session.Profile(); p == nil || p.Role != role {
		return Unauthorized
	}
	return Authorized
}
