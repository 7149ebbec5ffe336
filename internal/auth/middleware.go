package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const identityKey contextKey = iota

// IdentityFromContext extracts the verified identity from the request context.
func IdentityFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey).(string); ok {
		return v
	}
	return ""
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// Browsers cannot set headers on websocket upgrades, so the sync endpoint
	// also accepts the token as a query parameter.
	return r.URL.Query().Get("access_token")
}

// Middleware verifies the session token on every request and injects the
// identity into the request context. Requests without a valid token get
// 401 signed_out.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				http.Error(w, `{"error":"signed_out"}`, http.StatusUnauthorized)
				return
			}

			identity, err := svc.VerifySession(token)
			if err != nil {
				http.Error(w, `{"error":"signed_out"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
