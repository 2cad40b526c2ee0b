package http

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// withUser returns ctx carrying the authenticated user id.
func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// userID returns the authenticated user id stored by requireAuth.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's id in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.tokens.Validate(bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if claims.UserID == "" {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}
		ctx := withUser(r.Context(), claims.UserID)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID)
		ctx = applog.NewContext(ctx, logger)
		next(w, r.WithContext(ctx))
	}
}
