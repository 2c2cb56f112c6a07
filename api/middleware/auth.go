package middleware

import (
	"net/http"
	"strings"

	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	pkgauth "github.com/anandkp/shelfwise-backend/pkg/auth"
	"github.com/anandkp/shelfwise-backend/pkg/config"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// buyer's identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ident := identity.FromClaims(claims)
			ctx := WithIdentity(r.Context(), ident)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":       ident.UserID.String(),
					"identity_kind": ident.Kind.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
