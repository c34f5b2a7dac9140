package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const mobileKey ctxKey = "mobile"

// RequireAuth rejects requests without a valid Bearer login token and
// puts the verified mobile number on the request context.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				http.Error(w, `{"error":"missing_token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(raw, secret)
			if err != nil {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), mobileKey, claims.Mobile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MobileFromContext returns the mobile number RequireAuth stored.
func MobileFromContext(ctx context.Context) string {
	if m, ok := ctx.Value(mobileKey).(string); ok {
		return m
	}
	return ""
}
