package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// maxInboundIDLength bounds caller-supplied ids so log fields stay sane.
const maxInboundIDLength = 64

// RequestID tags every request with an id, honoring a caller-supplied
// one when it is reasonable, and attaches it to the request logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" || len(reqID) > maxInboundIDLength {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
