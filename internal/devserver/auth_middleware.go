package devserver

import (
	"context"
	"log"
	"net/http"
	"strings"

	"client_go/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the caller's email.
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userContextKey, email)
}

// CurrentUser extracts the caller's email from context, if any.
func CurrentUser(r *http.Request) string {
	if v, ok := r.Context().Value(userContextKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates the Bearer token and attaches the caller to the context.
func AuthMiddleware(tokens *security.TokenService, st *State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			sub, err := tokens.Parse(tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !st.userExists(sub) {
				log.Printf("AuthMiddleware: unknown user for sub '%s'", sub)
				writeError(w, http.StatusUnauthorized, "user not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), normEmail(sub))))
		})
	}
}
