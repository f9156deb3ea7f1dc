package authclient

import (
	"context"

	"github.com/goliatone/go-router"
)

var controllerCtxKey = &contextKey{"controller"}
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// DefaultLocalsKey is the router locals key used by the guard middleware to
// expose the session snapshot.
const DefaultLocalsKey = "session"

// WithContext stores the controller in ctx.
func WithContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerCtxKey, c)
}

// FromContext finds the controller stored with WithContext.
func FromContext(ctx context.Context) (*Controller, bool) {
	raw, ok := ctx.Value(controllerCtxKey).(*Controller)
	return raw, ok && raw != nil
}

// WithUserContext sets the resolved user in the given context
func WithUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the user set by WithUserContext, falling back to
// the user of a stored controller snapshot.
func UserFromContext(ctx context.Context) (*User, bool) {
	if u, ok := ctx.Value(userCtxKey).(*User); ok && u != nil {
		return u, true
	}
	if c, ok := FromContext(ctx); ok {
		if snap := c.Snapshot(); snap.IsAuthenticated && snap.User != nil {
			return snap.User, true
		}
	}
	return nil, false
}

// GetRouterSnapshot extracts the snapshot stored by the guard middleware
func GetRouterSnapshot(ctx router.Context, key string) (Snapshot, bool) {
	if key == "" {
		key = DefaultLocalsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return Snapshot{}, false
	}
	snap, ok := raw.(Snapshot)
	return snap, ok
}

// CanFromRouter checks resource:action for the user of the router snapshot.
func CanFromRouter(ctx router.Context, resource, action string) bool {
	snap, ok := GetRouterSnapshot(ctx, "")
	if !ok || !snap.IsAuthenticated {
		return false
	}
	return HasPermission(snap.User, resource, action)
}
