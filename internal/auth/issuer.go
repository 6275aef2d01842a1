// Package auth establishes sessions: it asks an Issuer for one, installs it in
// the session store and keeps the persisted copy in step.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/gateway/client"
	"teamhub/internal/session"
)

// CodeInvalidCredentials is returned when the identifier/secret pair is rejected.
const CodeInvalidCredentials = "INVALID_CREDENTIALS"

// Issuer exchanges an identifier and secret for a session. Failures are
// *apierror.Error values of kind unauthenticated, except when the identity
// provider could not be reached at all (upstream_unavailable).
type Issuer interface {
	Issue(ctx context.Context, identifier, secret string) (session.Session, error)
}

// UpstreamIssuer logs in against the upstream API's /auth/login endpoint.
type UpstreamIssuer struct {
	client *client.Client
}

// NewUpstreamIssuer creates an issuer that posts credentials through c.
func NewUpstreamIssuer(c *client.Client) *UpstreamIssuer {
	return &UpstreamIssuer{client: c}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Issue posts the credentials and validates the returned session. When the
// response carries no expiry, the token's exp claim is used.
func (i *UpstreamIssuer) Issue(ctx context.Context, identifier, secret string) (session.Session, error) {
	sess, err := client.Post[session.Session](ctx, i.client, "/auth/login", loginRequest{
		Email:    identifier,
		Password: secret,
	})
	if err != nil {
		return session.Session{}, rejectAsUnauthenticated(err)
	}

	if sess.Credential == "" {
		return session.Session{}, apierror.New(apierror.KindUnknown, apierror.CodeMalformedResponse,
			"The login response did not include a token")
	}
	if sess.ExpiresAt.IsZero() {
		exp, err := ExpiryFromToken(sess.Credential)
		if err != nil {
			return session.Session{}, apierror.Wrap(apierror.KindUnknown, apierror.CodeMalformedResponse,
				"The login response did not include an expiry", err)
		}
		sess.ExpiresAt = exp
	}
	return sess, nil
}

// rejectAsUnauthenticated folds every response-level rejection into
// unauthenticated. Transport failures keep their kind so callers can retry.
func rejectAsUnauthenticated(err error) error {
	e := apierror.From(err)
	switch e.Kind {
	case apierror.KindUnauthenticated, apierror.KindUpstreamUnavailable:
		return e
	case apierror.KindUnknown:
		if !e.HasStatus() || e.HTTPStatus >= 500 {
			return e
		}
	}
	out := apierror.Wrap(apierror.KindUnauthenticated, CodeInvalidCredentials, e.Message, e)
	out.HTTPStatus = e.HTTPStatus
	return out
}

// ExpiryFromToken reads the exp claim of a JWT without verifying the signature.
// The token is opaque to the client; only its lifetime is of interest here.
func ExpiryFromToken(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
