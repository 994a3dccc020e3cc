package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// ServiceAuth guards the internal event ingress. Callers present the same
// bearer tokens the websocket endpoint accepts; anonymous principals are
// rejected outright.
func ServiceAuth(tokenSvc *services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			principal, err := tokenSvc.ResolvePrincipal(parts[1])
			if err != nil || principal.Anonymous() {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
