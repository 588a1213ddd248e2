// Package api implements the Othala REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"
)

// UserKeyHeader is the header carrying the caller's opaque user key. It is
// the sole tenancy boundary; it is not a verified identity.
const UserKeyHeader = "x-user-key"

type ctxKey int

const userKeyCtxKey ctxKey = iota

// RequireUserKey extracts and validates the x-user-key header. A missing or
// blank value fails closed with 400 before any handler runs. The middleware
// never consults storage.
func RequireUserKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(UserKeyHeader))
		if key == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("Missing x-user-key"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKeyCtxKey, key)))
	})
}

// userKey returns the validated user key stashed by RequireUserKey.
func userKey(r *http.Request) string {
	key, _ := r.Context().Value(userKeyCtxKey).(string)
	return key
}
