package delivery

import "context"

// Principal is the identity background work runs under
type Principal struct {
	Name   string
	System bool
}

// SystemPrincipal is used by the dispatcher and the change trigger
var SystemPrincipal = Principal{Name: "system", System: true}

type principalKey struct{}

// WithPrincipal attaches p to ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
