package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
	apiContext "releaseguard/internal/api/context"
	"releaseguard/internal/accounts"
	"releaseguard/internal/pkg/errors"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/models"
)

// SessionChecker resolves a session id to a live session row.
type SessionChecker interface {
	ActiveSession(ctx context.Context, sessionID string) (*models.Session, error)
}

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
	sessions SessionChecker
}

func NewAuthMiddleware(tokenSvc *auth.TokenService, sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, sessions: sessions}
}

// Handle accepts a request only when the bearer token verifies and the
// session it names is still live. The actor's role comes from the session
// row, not from the token.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(parts[1])
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		session, err := m.sessions.ActiveSession(r.Context(), claims.SessionID())
		if err != nil {
			if stderrors.Is(err, accounts.ErrSessionExpired) {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeSessionExpired, "Session expired", nil)
				return
			}
			hlog.FromRequest(r).Error().Err(err).Msg("session lookup failed")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
			return
		}
		if session.UserID != claims.UserID || session.OrganizationID != claims.OrganizationID {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		actor := accounts.Actor{
			UserID:         session.UserID,
			OrganizationID: session.OrganizationID,
			SessionID:      session.ID,
			Role:           accounts.ParseRole(session.Role),
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		ctx = context.WithValue(ctx, apiContext.Actor, actor)
		next(w, r.WithContext(ctx))
	}
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(ctx context.Context) (accounts.Actor, bool) {
	actor, ok := ctx.Value(apiContext.Actor).(accounts.Actor)
	return actor, ok
}
