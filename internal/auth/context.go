package auth

import "context"

type Principal struct {
	OrgID      string
	ActorID    string
	TokenID    string
	Scopes     []string
	AuthMethod string // api_key, jwt or dev
}

// Admin principals may act on any organization.
func (p Principal) Admin() bool {
	return p.AuthMethod == MethodAPIKey || p.AuthMethod == MethodDev
}

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
