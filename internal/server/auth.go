package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/budgetai-go/internal/logging"
)

const authRealm = "budgetai"

// authMiddleware guards a route with the BUDGETAI_API_KEY Bearer token.
// An empty apiKey leaves the route open. Probes and /metrics are never
// wrapped; see New.
//
// Rejections are JSON errors with a WWW-Authenticate challenge. The
// presented token is never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		switch {
		case !ok:
			rejectUnauthorized(w, r, "missing_token", `Bearer realm="`+authRealm+`"`, "authorization required")
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			rejectUnauthorized(w, r, "invalid_token", `Bearer realm="`+authRealm+`", error="invalid_token"`, "invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, reason, challenge, msg string) {
	logging.FromContext(r.Context()).Warn("auth: request rejected",
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	)
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, http.StatusUnauthorized, msg)
}

// bearerToken parses "Bearer <token>" (scheme case-insensitive). ok is
// false when the header is absent, uses another scheme or has no token.
func bearerToken(header string) (token string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(rest)
	return token, token != ""
}
