package auth

//go:generate mockgen -source=issuer.go -destination=mocks/mocks.go -package=mocks Issuer
//go:generate mockgen -destination=mocks/persister.go -package=mocks teamhub/internal/session Persister

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"teamhub/internal/auth/mocks"
	"teamhub/internal/gateway/apierror"
	"teamhub/internal/session"
	"teamhub/pkg/platform/sentinel"
	"teamhub/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	issuer    *mocks.MockIssuer
	persister *mocks.MockPersister
	store     *session.Store
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.issuer = mocks.NewMockIssuer(s.ctrl)
	s.persister = mocks.NewMockPersister(s.ctrl)
	s.store = session.NewStore()
	s.service = NewService(s.issuer, s.store,
		WithPersister(s.persister),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) validSession() session.Session {
	return session.Session{
		User:       DevUser,
		Credential: "jwt-abc",
		ExpiresAt:  s.now.Add(time.Hour),
	}
}

func (s *ServiceSuite) TestLogin() {
	s.Run("installs and persists the issued session", func() {
		sess := s.validSession()
		s.issuer.EXPECT().Issue(gomock.Any(), "john@acme.com", "secret").Return(sess, nil)
		s.persister.EXPECT().Save(gomock.Any(), sess).Return(nil)

		got, err := s.service.Login(s.ctx, "john@acme.com", "secret")
		s.Require().NoError(err)
		s.Equal(sess, got)

		current, ok := s.store.Current(s.ctx)
		s.True(ok)
		s.Equal(sess, current)
	})

	s.Run("rejected credentials leave the store untouched", func() {
		s.store.Clear()
		s.issuer.EXPECT().Issue(gomock.Any(), "john@acme.com", "wrong").
			Return(session.Session{}, apierror.New(apierror.KindUnauthenticated, CodeInvalidCredentials, ""))

		_, err := s.service.Login(s.ctx, "john@acme.com", "wrong")
		s.True(apierror.HasKind(err, apierror.KindUnauthenticated))

		_, ok := s.store.Current(s.ctx)
		s.False(ok)
	})

	s.Run("an already expired session is refused", func() {
		s.store.Clear()
		sess := s.validSession()
		sess.ExpiresAt = s.now.Add(-time.Second)
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return(sess, nil)

		_, err := s.service.Login(s.ctx, "john@acme.com", "secret")
		s.True(apierror.HasKind(err, apierror.KindUnauthenticated))

		_, ok := s.store.Current(s.ctx)
		s.False(ok)
	})

	s.Run("persistence failure is reported but the session stays active", func() {
		sess := s.validSession()
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return(sess, nil)
		s.persister.EXPECT().Save(gomock.Any(), sess).Return(errors.New("disk full"))

		_, err := s.service.Login(s.ctx, "john@acme.com", "secret")
		e, ok := apierror.As(err)
		s.Require().True(ok)
		s.Equal("SESSION_NOT_SAVED", e.Code)

		_, active := s.store.Current(s.ctx)
		s.True(active)
	})

	s.Run("plain issuer errors are normalized", func() {
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return(session.Session{}, errors.New("boom"))

		_, err := s.service.Login(s.ctx, "john@acme.com", "secret")
		_, ok := apierror.As(err)
		s.True(ok)
	})
}

func (s *ServiceSuite) TestLogout() {
	s.store.Replace(s.validSession())
	s.persister.EXPECT().Delete(gomock.Any()).Return(nil)

	s.Require().NoError(s.service.Logout(s.ctx))

	_, ok := s.store.Current(s.ctx)
	s.False(ok)
}

func (s *ServiceSuite) TestRestore() {
	s.Run("loads a persisted session", func() {
		sess := s.validSession()
		s.persister.EXPECT().Load(gomock.Any()).Return(sess, nil)

		got, ok, err := s.service.Restore(s.ctx)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(sess, got)

		_, active := s.store.Current(s.ctx)
		s.True(active)
	})

	s.Run("nothing stored", func() {
		s.store.Clear()
		s.persister.EXPECT().Load(gomock.Any()).Return(session.Session{}, sentinel.ErrNotFound)

		_, ok, err := s.service.Restore(s.ctx)
		s.NoError(err)
		s.False(ok)
	})

	s.Run("expired session is discarded", func() {
		s.store.Clear()
		sess := s.validSession()
		sess.ExpiresAt = s.now.Add(-time.Minute)
		s.persister.EXPECT().Load(gomock.Any()).Return(sess, nil)
		s.persister.EXPECT().Delete(gomock.Any()).Return(nil)

		_, ok, err := s.service.Restore(s.ctx)
		s.NoError(err)
		s.False(ok)

		_, active := s.store.Current(s.ctx)
		s.False(active)
	})

	s.Run("unreadable store is an error", func() {
		s.persister.EXPECT().Load(gomock.Any()).Return(session.Session{}, sentinel.ErrUnavailable)

		_, _, err := s.service.Restore(s.ctx)
		s.Error(err)
	})
}

func TestServiceWithoutPersister(t *testing.T) {
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockIssuer(ctrl)
	store := session.NewStore()
	svc := NewService(issuer, store)

	_, ok, err := svc.Restore(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no session and no error, got ok=%v err=%v", ok, err)
	}
	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("logout without persister: %v", err)
	}
}
