package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/session"
	"teamhub/pkg/requestcontext"
)

const (
	DevTokenIssuer  = "teamhub-api"
	defaultTokenTTL = 24 * time.Hour
)

// DevUser is the seeded development identity: John Doe, owner of Acme.
var DevUser = session.User{
	ID:             "user_01HQ3XK123",
	Email:          "john@acme.com",
	DisplayName:    "John Doe",
	OrganizationID: "org_01HQ3XJMR5E0987654321",
	Role:           session.RoleOwner,
}

// Claims are the dev token claims, mirroring what the upstream API signs.
type Claims struct {
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	jwt.RegisteredClaims
}

type devAccount struct {
	user       session.User
	secretHash []byte
}

// DevIssuer signs HS256 tokens locally for development against an upstream
// that shares the signing key. It is not an identity provider.
type DevIssuer struct {
	signingKey []byte
	ttl        time.Duration

	mu       sync.RWMutex
	accounts map[string]devAccount
}

// DevOption configures a DevIssuer.
type DevOption func(*DevIssuer)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) DevOption {
	return func(i *DevIssuer) {
		if d > 0 {
			i.ttl = d
		}
	}
}

// NewDevIssuer creates an issuer with DevUser registered under devSecret.
func NewDevIssuer(signingKey, devSecret string, opts ...DevOption) (*DevIssuer, error) {
	if signingKey == "" {
		return nil, errors.New("dev issuer requires a signing key")
	}
	i := &DevIssuer{
		signingKey: []byte(signingKey),
		ttl:        defaultTokenTTL,
		accounts:   make(map[string]devAccount),
	}
	for _, opt := range opts {
		opt(i)
	}
	if err := i.Register(DevUser, devSecret); err != nil {
		return nil, err
	}
	return i, nil
}

// Register adds or replaces an account. The secret is kept only as a bcrypt hash.
func (i *DevIssuer) Register(user session.User, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.accounts[normalizeEmail(user.Email)] = devAccount{user: user, secretHash: hash}
	return nil
}

// Issue verifies the secret and signs a token for the account.
func (i *DevIssuer) Issue(ctx context.Context, identifier, secret string) (session.Session, error) {
	i.mu.RLock()
	account, ok := i.accounts[normalizeEmail(identifier)]
	i.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(account.secretHash, []byte(secret)) != nil {
		return session.Session{}, apierror.New(apierror.KindUnauthenticated, CodeInvalidCredentials,
			"Invalid email or password")
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(i.ttl)
	token, err := i.sign(account.user, now, expiresAt)
	if err != nil {
		return session.Session{}, apierror.Wrap(apierror.KindUnknown, apierror.CodeUnknown, "failed to sign token", err)
	}

	return session.Session{
		User:       account.user,
		Credential: token,
		ExpiresAt:  expiresAt,
	}, nil
}

func (i *DevIssuer) sign(user session.User, now, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    DevTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(i.signingKey)
}

// validateToken checks the signature, issuer and expiry of a dev token.
func (i *DevIssuer) validateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	}, jwt.WithIssuer(DevTokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierror.Wrap(apierror.KindUnauthenticated, "TOKEN_EXPIRED", "token has expired", err)
		}
		return nil, apierror.Wrap(apierror.KindUnauthenticated, "INVALID_TOKEN", "invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apierror.New(apierror.KindUnauthenticated, "INVALID_TOKEN", "invalid token claims")
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
