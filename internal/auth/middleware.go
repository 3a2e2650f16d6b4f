package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// QueryParam carries the key for clients that cannot set headers, such as
// browser WebSocket connections.
const QueryParam = "api_key"

// APIKeyMiddleware returns middleware that enforces API key authentication
// on every request it wraps.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests pass through.
//   - Otherwise the key is read from header, falling back to the api_key
//     query parameter, and compared to key.
//   - A missing, empty, or incorrect key is answered with 401.
func APIKeyMiddleware(mode, header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode != "apikey" || key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" {
				got = r.URL.Query().Get(QueryParam)
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
