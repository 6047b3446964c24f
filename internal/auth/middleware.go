package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"kryta-backend/internal/analytics"
	"kryta-backend/internal/db"
	"kryta-backend/internal/users"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Middleware resolves the caller. A bearer token always wins; without one,
// local mode falls back to the single local profile.
type Middleware struct {
	secret    []byte
	db        db.Runner
	localMode bool
	logger    *zap.Logger
}

func New(secret []byte, d db.Runner, localMode bool, logger *zap.Logger) Middleware {
	return Middleware{secret: secret, db: d, localMode: localMode, logger: logger}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID string

		h := r.Header.Get("Authorization")
		switch {
		case strings.HasPrefix(h, "Bearer "):
			uid, err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			userID = uid

		case m.localMode:
			u, err := users.EnsureLocal(r.Context(), m.db)
			if err != nil {
				m.logger.Error("local profile unavailable", zap.Error(err))
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}
			userID = u.ID

		default:
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		ctx := WithUserID(r.Context(), userID)
		next(w, r.WithContext(ctx))
	}
}

// WithUserID stores the caller for handlers and for analytics.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return analytics.WithUserID(ctx, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	return uid, ok && uid != ""
}
