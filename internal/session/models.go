package session

import "time"

// Role is a member's authorization level inside their organization.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
)

func (r Role) String() string {
	return string(r)
}

// User is the authenticated identity carried by a session. A user belongs to
// exactly one organization for the life of the session.
type User struct {
	ID             string `json:"id" yaml:"id"`
	Email          string `json:"email" yaml:"email"`
	DisplayName    string `json:"name" yaml:"name"`
	OrganizationID string `json:"organizationId" yaml:"organization_id"`
	Role           Role   `json:"role" yaml:"role"`
}

// Session is the proof of identity held by a client for one authenticated period.
// It is immutable once issued; re-authentication replaces it wholesale.
type Session struct {
	User       User      `json:"user" yaml:"user"`
	Credential string    `json:"token" yaml:"token"`
	ExpiresAt  time.Time `json:"expiresAt" yaml:"expires_at"`
}

// Expired reports whether the session is unusable at now. A zero ExpiresAt counts
// as expired so a half-built session can never authorize anything.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
