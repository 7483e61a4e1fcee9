// ABOUTME: Caller identity propagation through request contexts
// ABOUTME: Provides WithIdentity/IdentityFromContext for handlers downstream of Identify

package auth

import (
	"context"
)

// identityKey is the key type for storing the caller's user id in context.Context.
type identityKey struct{}

// WithIdentity returns a new context carrying the authenticated user id.
func WithIdentity(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityFromContext retrieves the caller's user id from the context.
// ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (userID int64, ok bool) {
	userID, ok = ctx.Value(identityKey{}).(int64)
	return userID, ok
}

// MustIdentity retrieves the caller's user id, panicking if the request is
// anonymous. Only for handlers registered behind RequireGoodStanding.
func MustIdentity(ctx context.Context) int64 {
	userID, ok := IdentityFromContext(ctx)
	if !ok {
		panic("auth: identity not found in context")
	}
	return userID
}
