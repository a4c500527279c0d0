// Package auth enforces the bearer header contract of the DCP endpoints.
// Only the header shape is checked here; token semantics belong to the
// validators behind each handler.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"dcptck/pkg/platform/middleware/request"
)

const bearerPrefix = "Bearer "

type contextKeyBearerToken struct{}

// BearerToken returns the raw token placed in the context by RequireBearer.
func BearerToken(ctx context.Context) string {
	if token, ok := ctx.Value(contextKeyBearerToken{}).(string); ok {
		return token
	}
	return ""
}

// WithBearerToken stores a raw bearer token in the context.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyBearerToken{}, token)
}

// ParseBearer extracts the token from an Authorization header value. The
// "Bearer " prefix is mandatory and the remaining token must not be blank.
func ParseBearer(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireBearer rejects requests without a well-formed bearer Authorization
// header with 401 before any body parsing, and stores the token for handlers.
func RequireBearer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := ParseBearer(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing bearer token",
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing access token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithBearerToken(ctx, token)))
		})
	}
}

// RequireAdminToken guards administrative endpoints such as revocation with a
// static shared token sent in X-Admin-Token. An empty expected token disables
// the endpoints entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
