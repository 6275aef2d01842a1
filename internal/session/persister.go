package session

import "context"

// Persister keeps a session across short-lived client processes (e.g. successive
// CLI invocations). The in-memory Store stays the authority while a process runs;
// a Persister is only read at start-up and written on login/logout.
//
// Load returns sentinel.ErrNotFound when nothing is stored.
type Persister interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, sess Session) error
	Delete(ctx context.Context) error
}
