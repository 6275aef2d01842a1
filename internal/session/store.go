package session

import (
	"context"
	"sync/atomic"

	"teamhub/pkg/requestcontext"
)

// Reader is the read-only view of the current identity. Every component that
// needs identity receives a Reader; only the login flow holds the *Store.
type Reader interface {
	Current(ctx context.Context) (Session, bool)
	Credential(ctx context.Context) (string, bool)
}

// Store holds the authoritative session for one client process.
//
// The session is swapped as a single pointer, so a concurrent reader observes
// either the previous session or the new one, never a user from one and a
// credential from the other. Expiry is evaluated lazily on every read using the
// request-scoped clock.
type Store struct {
	current atomic.Pointer[Session]
}

// NewStore returns an empty store (no session).
func NewStore() *Store {
	return &Store{}
}

// Current returns the session if one is held and it has not expired.
func (s *Store) Current(ctx context.Context) (Session, bool) {
	sess := s.current.Load()
	if sess == nil || sess.Expired(requestcontext.Now(ctx)) {
		return Session{}, false
	}
	return *sess, true
}

// Credential returns the opaque token of the current, unexpired session.
func (s *Store) Credential(ctx context.Context) (string, bool) {
	sess, ok := s.Current(ctx)
	if !ok || sess.Credential == "" {
		return "", false
	}
	return sess.Credential, true
}

// Replace installs a new session, discarding the previous one.
func (s *Store) Replace(sess Session) {
	s.current.Store(&sess)
}

// Clear transitions the store to "no session".
func (s *Store) Clear() {
	s.current.Store(nil)
}
