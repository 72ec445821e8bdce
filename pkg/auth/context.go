package auth

import "context"

// principalKey is a private type for the principal context key.
type principalKey struct{}

// failureKey is a private type for the verification failure context key.
type failureKey struct{}

// SetPrincipal stores the authenticated principal in the context.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns nil if the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

// SetAuthFailure records why a presented credential was rejected.
func SetAuthFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, failureKey{}, err)
}

// AuthFailureFromContext returns the recorded verification failure, or nil
// if no credential was presented or it verified.
func AuthFailureFromContext(ctx context.Context) error {
	if v, ok := ctx.Value(failureKey{}).(error); ok {
		return v
	}
	return nil
}
