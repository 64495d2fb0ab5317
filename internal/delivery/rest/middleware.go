package rest

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const userHeader = "X-User-ID"

type ctxKey struct{}

// requireUser resolves the caller from the X-User-ID header, or the "user" query
// parameter for websocket upgrades where browsers cannot set headers.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userHeader))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user"))
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user id")
			return
		}

		h.logger.Debug("api request",
			zap.String("user_id", userID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) string {
	userID, _ := ctx.Value(ctxKey{}).(string)
	return userID
}
