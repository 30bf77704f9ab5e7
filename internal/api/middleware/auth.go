package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hszk-dev/atelier/internal/api/handler"
	"github.com/hszk-dev/atelier/internal/auth"
)

const SubjectKey ctxKey = iota + 1

// RequireBearer rejects requests without a valid HS256 bearer token and
// stores the token subject in the request context.
func RequireBearer(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				handler.Error(w, http.StatusUnauthorized, "unauthorized", "Bearer token required")
				return
			}

			subject, err := auth.VerifyToken(strings.TrimSpace(raw), secret)
			if err != nil {
				logger.Warn("rejected bearer token",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				msg := "Invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "Token expired"
				}
				handler.Error(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject retrieves the authenticated subject from context.
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(SubjectKey).(string); ok {
		return s
	}
	return ""
}
