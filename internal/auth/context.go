package auth

import (
	"context"

	"communities.ooo/internal/identity"
)

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the caller's principal, or the anonymous
// principal when the request carried no session.
func PrincipalFromContext(ctx context.Context) identity.Principal {
	if ctx == nil {
		return identity.Anonymous
	}
	p, ok := ctx.Value(principalContextKey{}).(identity.Principal)
	if !ok || p == "" {
		return identity.Anonymous
	}
	return p
}
