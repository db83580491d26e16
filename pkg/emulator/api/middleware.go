// Package api implements the HTTP handlers of the accounting API emulator.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cybernetisk/okotools/pkg/emulator/store"
)

type contextKey string

const (
	contextKeyToken contextKey = "token"
)

// AuthMiddleware validates the session token sent as the Basic auth password.
// The user name carries the company id and is not checked.
func AuthMiddleware(st *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, token, ok := r.BasicAuth()
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}

			valid, err := st.ValidateSession(token, time.Now())
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "Failed to validate session token")
				return
			}

			if !valid {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
