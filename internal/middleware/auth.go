package middleware

import (
	"context"
	"net/http"

	"minimarket/internal/store"

	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "admin_session"

// SessionSource exposes the current auth slice
type SessionSource interface {
	State() store.State
}

// RequireSession admits a request only while an admin is logged in. The
// session itself is verified by the auth coordinator; this only reads the
// resulting state.
func RequireSession(src SessionSource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := src.State().Auth
			if auth.Checking {
				logger.Debug("Session check still running", zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				RespondWithError(w, http.StatusServiceUnavailable, "session is being verified")
				return
			}
			if !auth.IsLoggedIn {
				logger.Debug("Admin route without session", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "sign in required")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the auth state RequireSession admitted the request with
func GetSession(ctx context.Context) (store.AuthState, bool) {
	auth, ok := ctx.Value(sessionKey).(store.AuthState)
	return auth, ok
}

// Toucher records view activity
type Toucher interface {
	Touch()
}

// ActivityMiddleware reports every request as view activity so background
// polling pauses while nobody is browsing
func ActivityMiddleware(t Toucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Touch()
			next.ServeHTTP(w, r)
		})
	}
}
