// Package auditctx carries the acting user through request contexts so
// audit entries can be attributed without threading parameters.
package auditctx

import "context"

type contextKey string

const (
	actorNameKey contextKey = "audit_actor_name"
	actorRoleKey contextKey = "audit_actor_role"
	actorIDKey   contextKey = "audit_actor_id"
)

// SystemActor is reported when no user is attached to the context.
const SystemActor = "system"

// Actor identifies who performed an action.
type Actor struct {
	ID   string
	Name string
	Role string
}

// WithActor attaches a to ctx. Empty fields are not stored.
func WithActor(ctx context.Context, a Actor) context.Context {
	if a.ID != "" {
		ctx = context.WithValue(ctx, actorIDKey, a.ID)
	}
	if a.Name != "" {
		ctx = context.WithValue(ctx, actorNameKey, a.Name)
	}
	if a.Role != "" {
		ctx = context.WithValue(ctx, actorRoleKey, a.Role)
	}
	return ctx
}

// ActorFromContext returns the actor on ctx. Name defaults to SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	id, _ := ctx.Value(actorIDKey).(string)
	name, _ := ctx.Value(actorNameKey).(string)
	role, _ := ctx.Value(actorRoleKey).(string)
	if name == "" {
		name = SystemActor
	}
	return Actor{ID: id, Name: name, Role: role}
}
