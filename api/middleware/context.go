package middleware

import (
	"context"

	"github.com/anandkp/shelfwise-backend/internal/identity"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the authenticated buyer, or the zero
// identity when the request carries no valid credentials.
func IdentityFromContext(ctx context.Context) identity.Identity {
	if ctx == nil {
		return identity.Identity{}
	}
	if ident, ok := ctx.Value(ctxIdentity).(identity.Identity); ok {
		return ident
	}
	return identity.Identity{}
}

// WithIdentity injects the authenticated buyer into the context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}
