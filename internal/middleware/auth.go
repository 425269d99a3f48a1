package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/auth"
)

type contextKey string

const loginKey contextKey = "login"

// LoginFromContext returns the authenticated login attached by RequireAuth.
func LoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(loginKey).(string)
	return login, ok && login != ""
}

// RequireAuth verifies the Bearer token and stores the login in the request
// context.
func RequireAuth(cfg auth.TokenConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := auth.VerifyToken(parts[1], cfg)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), loginKey, claims.Login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
