package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "actor"

// Role is a user's permission level inside their organization.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Actor is the authenticated user a request acts for.
type Actor struct {
	UserID         int64
	OrganizationID int64
	Role           Role
}

// IsAdmin reports whether the actor may run admin-only operations.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ContextWithActor stores the authenticated actor in ctx.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the actor stored by ContextWithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}
