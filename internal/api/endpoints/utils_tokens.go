package endpoints

import (
	"net/http"
	"strings"
)

func ExtractTokenFromHeaders(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")

	if !strings.HasPrefix(tokenString, "Bearer ") {
		return ""
	}

	return tokenString[len("Bearer "):]
}
