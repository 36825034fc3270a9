package middleware

import (
	"net/http"
	"strings"

	internaljwt "livechat-backend/internal/jwt"
)

// ValidateAgentJWT rejects requests that do not carry a valid agent
// access token. The endpoint re-parses the token to get the identity;
// the middleware only gates entry.
func ValidateAgentJWT(manager *internaljwt.Manager) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" || !strings.HasPrefix(tokenString, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString = tokenString[len("Bearer "):]

			if _, err := manager.ParseToken(tokenString); err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r)
		}
	}
}
