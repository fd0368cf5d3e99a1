package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireBearerToken при непустом token требует "Authorization: Bearer <token>", иначе 401.
// Пустой token отключает проверку.
func RequireBearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid or missing sync token"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
