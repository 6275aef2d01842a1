package auth

import (
	"context"
	"errors"
	"log/slog"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/session"
	"teamhub/pkg/platform/sentinel"
	"teamhub/pkg/requestcontext"
)

// Service owns the write side of the session store. Everything else reads
// through session.Reader.
type Service struct {
	issuer    Issuer
	store     *session.Store
	persister session.Persister
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPersister keeps sessions across process restarts.
func WithPersister(p session.Persister) Option {
	return func(s *Service) { s.persister = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(issuer Issuer, store *session.Store, opts ...Option) *Service {
	s := &Service{
		issuer: issuer,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login obtains a session and installs it. The store is only touched once the
// issuer has returned a valid, unexpired session.
func (s *Service) Login(ctx context.Context, identifier, secret string) (session.Session, error) {
	sess, err := s.issuer.Issue(ctx, identifier, secret)
	if err != nil {
		s.logger.InfoContext(ctx, "login rejected",
			"identifier", identifier,
			"kind", apierror.KindOf(err),
			"request_id", requestcontext.RequestID(ctx),
		)
		return session.Session{}, apierror.From(err)
	}
	if sess.Expired(requestcontext.Now(ctx)) {
		return session.Session{}, apierror.New(apierror.KindUnauthenticated, "TOKEN_EXPIRED",
			"The issued session has already expired")
	}

	s.store.Replace(sess)
	s.logger.InfoContext(ctx, "session established",
		"user_id", sess.User.ID,
		"organization_id", sess.User.OrganizationID,
		"role", sess.User.Role,
		"expires_at", sess.ExpiresAt,
	)

	if s.persister != nil {
		if err := s.persister.Save(ctx, sess); err != nil {
			return sess, apierror.Wrap(apierror.KindUnknown, "SESSION_NOT_SAVED",
				"Signed in, but the session could not be saved", err)
		}
	}
	return sess, nil
}

// Logout clears the session. It succeeds even when nothing was signed in.
func (s *Service) Logout(ctx context.Context) error {
	s.store.Clear()
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Delete(ctx); err != nil {
		return apierror.Wrap(apierror.KindUnknown, "SESSION_NOT_DELETED",
			"Signed out, but the saved session could not be removed", err)
	}
	s.logger.InfoContext(ctx, "session cleared")
	return nil
}

// Restore loads a persisted session into the store. It reports false when
// nothing usable was stored; an expired session is deleted.
func (s *Service) Restore(ctx context.Context) (session.Session, bool, error) {
	if s.persister == nil {
		return session.Session{}, false, nil
	}

	sess, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return session.Session{}, false, nil
	case err != nil:
		return session.Session{}, false, apierror.Wrap(apierror.KindUnknown, "SESSION_NOT_LOADED",
			"The saved session could not be read", err)
	}

	if sess.Expired(requestcontext.Now(ctx)) {
		if err := s.persister.Delete(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", err)
		}
		return session.Session{}, false, nil
	}

	s.store.Replace(sess)
	return sess, true, nil
}

// Current returns the signed-in session, if any.
func (s *Service) Current(ctx context.Context) (session.Session, bool) {
	return s.store.Current(ctx)
}
