package accounts

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"releaseguard/internal/pkg/validator"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/models"
	"releaseguard/internal/platform/repositories"
)

// ForgotPassword issues a one-hour reset token for the account with the given
// address and emails a link to it. A new request replaces any earlier token.
// If delivery fails the token stays stored but unusable by its owner, and
// ErrNotificationFailed is returned.
func (s *Service) ForgotPassword(ctx context.Context, address string) error {
	user, err := s.forgotPassword(ctx, address)
	var orgID, userID string
	if user != nil {
		orgID, userID = user.OrganizationID, user.ID
	}
	s.finish(ctx, "forgot", orgID, userID, err, nil)
	return err
}

func (s *Service) forgotPassword(ctx context.Context, address string) (*models.User, error) {
	address = validator.FoldEmail(address)
	if address == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.repos.Users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrMultipleRows) {
			return nil, fmt.Errorf("%w: %w", ErrAccountNotFound, err)
		}
		return nil, err
	}

	token, err := auth.GenerateToken(auth.ResetTokenSize)
	if err != nil {
		return user, err
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.ResetTokenTTL).UnixMilli()
	if err := s.repos.Users.SetResetToken(ctx, user.ID, auth.Fingerprint(token), expiresAt, now.UnixMilli()); err != nil {
		return user, dependencyError("save reset token", err)
	}

	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	msg := email.Message{
		From:    s.cfg.Sender,
		To:      user.Email,
		Subject: "Reset your ReleaseGuard password",
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to set a new password. It expires in %d minutes.</p>`+
			`<p><a href="%s">Reset password</a></p><p>If you did not ask for this, you can ignore this email.</p>`,
			html.EscapeString(user.FullName), int(s.cfg.ResetTokenTTL.Minutes()), html.EscapeString(link)),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return user, fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return user, nil
}
