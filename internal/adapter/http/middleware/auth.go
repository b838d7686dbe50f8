package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// TokenHeader carries the shared API token.
const TokenHeader = "X-Token"

// TokenAuth rejects requests whose X-Token header does not match token.
// An empty token disables the check.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		expected := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TokenHeader)
			if got == "" {
				writeUnauthorized(w, "missing "+TokenHeader+" header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": message})
}
