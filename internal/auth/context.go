package auth

import "context"

type principalKey struct{}

// ContextWithPrincipal returns a child context carrying the verified identity.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the identity attached by the auth middleware.
// Anonymous requests report false.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.ID <= 0 {
		return Principal{}, false
	}
	return p, true
}
