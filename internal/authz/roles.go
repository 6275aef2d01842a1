// Package authz answers "is this identity privileged enough?" before an action is
// dispatched. It is a client-side convenience; the upstream API remains the
// source of truth for authorization.
package authz

import (
	"context"
	"fmt"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/session"
)

// hierarchy ranks roles by privilege. Unknown roles rank 0.
var hierarchy = map[session.Role]int{
	session.RoleViewer: 1,
	session.RoleMember: 2,
	session.RoleAdmin:  3,
	session.RoleOwner:  4,
}

// Rank returns the privilege rank of r, 0 for roles outside the hierarchy.
func Rank(r session.Role) int {
	return hierarchy[r]
}

// Known reports whether r is part of the hierarchy.
func Known(r session.Role) bool {
	_, ok := hierarchy[r]
	return ok
}

// Satisfies reports whether actual is at least as privileged as required.
// An unrecognized actual role ranks 0 and therefore fails every known requirement.
func Satisfies(actual, required session.Role) bool {
	return Rank(actual) >= Rank(required)
}

// HasRole checks the current session's role. No session means false.
func HasRole(ctx context.Context, sessions session.Reader, required session.Role) bool {
	sess, ok := sessions.Current(ctx)
	if !ok {
		return false
	}
	return Satisfies(sess.User.Role, required)
}

// Require returns nil when the current session satisfies required, otherwise a
// normalized unauthenticated (no session) or forbidden (rank too low) error.
// A session whose role is outside the hierarchy is always forbidden.
func Require(ctx context.Context, sessions session.Reader, required session.Role) error {
	sess, ok := sessions.Current(ctx)
	if !ok {
		return apierror.New(apierror.KindUnauthenticated, apierror.CodeUnauthenticated, "Sign in to continue")
	}
	if !Known(sess.User.Role) {
		return apierror.New(apierror.KindForbidden, apierror.CodeForbidden,
			fmt.Sprintf("Role %q is not recognized", sess.User.Role))
	}
	if !Satisfies(sess.User.Role, required) {
		return apierror.New(apierror.KindForbidden, apierror.CodeForbidden,
			fmt.Sprintf("This action requires the %s role", required))
	}
	return nil
}
