// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatstats/internal/auth"
)

// NewBearerAuthMiddleware admits requests carrying a valid ingestion token
// in the Authorization header and stores its subject in the context.
func NewBearerAuthMiddleware(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				log.Printf("[AuthMiddleware] Missing bearer token for %s %s", r.Method, r.URL.Path)
				w.Header().Set("WWW-Authenticate", `Bearer realm="ingest"`)
				writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			subject, err := auth.ValidateToken(strings.TrimSpace(token), secretKey)
			if err != nil {
				log.Printf("[AuthMiddleware] Invalid token: %v", err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="ingest", error="invalid_token"`)
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
