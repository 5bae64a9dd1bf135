package http

import (
	"context"

	"github.com/example/team-calendar/internal/application"
)

type contextKey string

const (
	principalContextKey  contextKey = "principal"
	resourceIDContextKey contextKey = "resource_id"
)

// ContextWithPrincipal returns a derived context containing the claims of the
// authenticated caller.
func ContextWithPrincipal(ctx context.Context, claims application.TokenClaims) context.Context {
	return context.WithValue(ctx, principalContextKey, claims)
}

// PrincipalFromContext extracts the authenticated caller's claims from the
// context if available.
func PrincipalFromContext(ctx context.Context) (application.TokenClaims, bool) {
	claims, ok := ctx.Value(principalContextKey).(application.TokenClaims)
	return claims, ok
}

// ContextWithResourceID injects the resource identifier resolved from the
// request path.
func ContextWithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, id)
}

// ResourceIDFromContext extracts a resource identifier previously associated
// with the context.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(string)
	return id, ok
}
