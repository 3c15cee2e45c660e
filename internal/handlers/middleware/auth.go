package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/deskled/internal/handlers/render"
	"github.com/nkiryanov/deskled/internal/handlers/reqctx"
)

type authorizer interface {
	// Has to return error if Authorization header does not carry a valid bearer
	Authorize(ctx context.Context, header string) error
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// AuthMiddleware lets through only requests with a valid bearer token
func AuthMiddleware(a authorizer, l warnLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.Authorize(r.Context(), r.Header.Get("Authorization")); err != nil {
				l.Warn("Request not authorized", "error", err, "request_id", reqctx.RequestID(r.Context()))
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
