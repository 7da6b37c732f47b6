// Package session tracks the authentication lifecycle of one connection.
//
// The state machine is Unauthenticated → Authenticated → Closed. The only
// edge into Authenticated is a successful login, Closed is terminal, and a
// second login on an authenticated session is rejected: mid-session
// re-authentication is disallowed by policy so a session is bound to exactly
// one user for its whole life.
package session

import (
	"sync"

	"cipherchat/internal/common"
)

// State is the coarse position in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	}
	return "invalid"
}

// Session is the authentication state bound to one live connection. It is
// created Unauthenticated and destroyed with the connection. Only the owning
// connection actor transitions it, but reads may come from the write loop,
// so access is mutex-guarded.
type Session struct {
	mu       sync.Mutex
	state    State
	userID   int64
	username string
}

func New() *Session {
	return &Session{state: StateUnauthenticated}
}

// Authenticate moves the session to Authenticated for the given user.
// It fails on an already authenticated session (re-login rejected) and on a
// closed one.
func (s *Session) Authenticate(userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAuthenticated:
		return common.ErrAlreadyAuthenticated
	case StateClosed:
		return common.ErrSessionClosed
	}

	s.state = StateAuthenticated
	s.userID = userID
	s.username = username
	return nil
}

// Close moves the session to its terminal state. Safe to call any number of
// times from any state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether frames other than Login and Quit may be
// processed.
func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// User returns the authenticated identity, or ok=false when the session is
// not authenticated.
func (s *Session) User() (userID int64, username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated {
		return 0, "", false
	}
	return s.userID, s.username, true
}
