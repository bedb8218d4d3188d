// Package session carries the authenticated caller through a request context.
// Handlers never read tokens themselves; they ask a CurrentUserProvider.
package session

import (
	"context"
	"slices"
)

const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleLearner    = "learner"
)

// User is the caller identity resolved by the auth layer.
type User struct {
	ID     string
	Role   string
	OrgIDs []string
}

// IsAdmin reports whether the user is a platform administrator.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasRole reports whether the user holds any of roles.
func (u User) HasRole(roles ...string) bool {
	return slices.Contains(roles, u.Role)
}

// MemberOf reports organization membership. Admins belong to every organization.
func (u User) MemberOf(orgID string) bool {
	return u.IsAdmin() || slices.Contains(u.OrgIDs, orgID)
}

// CurrentUserProvider resolves the caller of the request owning ctx.
type CurrentUserProvider interface {
	CurrentUser(ctx context.Context) (User, bool)
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}

// ContextProvider reads the user the auth middleware placed on the context.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (User, bool) {
	return FromContext(ctx)
}

// StaticProvider always resolves to the same user. A zero User means anonymous.
type StaticProvider struct{ User User }

func (p StaticProvider) CurrentUser(context.Context) (User, bool) {
	return p.User, p.User.ID != ""
}
