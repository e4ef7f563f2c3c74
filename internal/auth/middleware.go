package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/GyroZepelix/mithril-content/internal/server"
)

type contextKey string

// ContextKeyCaller is the context key of the authenticated calling service.
const ContextKeyCaller contextKey = "caller"

// Middleware returns an HTTP middleware that validates service tokens from
// the Authorization header. On success it stores the caller in the request
// context. On failure it returns a 401 JSON error response.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				server.Error(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				server.Error(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
				return
			}

			claims, err := ValidateServiceToken(parts[1], secret)
			if err != nil {
				server.Error(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := WithCaller(r.Context(), claims.Caller())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// CallerFromContext returns the authenticated calling service, or "" when
// the request was not authenticated.
func CallerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyCaller).(string)
	return v
}
