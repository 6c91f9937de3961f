package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/assettrack/internal/auth"
	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/logging"
)

// TokenVerifier turns a bearer token into the acting user.
type TokenVerifier interface {
	Verify(token string) (core.Actor, error)
}

var _ TokenVerifier = (*auth.Issuer)(nil)

// Authenticate requires a valid "Authorization: Bearer <token>" header. The
// actor it names is stored with core.ContextWithActor, and every log line
// written for the request carries the user and organization ids.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logging.FromContext(r.Context()).Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			actor, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				logging.FromContext(r.Context()).Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := core.ContextWithActor(r.Context(), actor)
			ctx = logging.ContextWith(ctx, "user_id", actor.UserID, "organization_id", actor.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin answers 403 unless the authenticated actor is an admin.
// It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := core.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if !actor.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
