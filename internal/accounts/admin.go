package accounts

import (
	"context"
	"errors"
	"fmt"
	"html"

	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/models"
	"releaseguard/internal/platform/repositories"
)

func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]*models.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
}

// GetUser returns a member of the actor's organization. Users of other
// organizations are reported as not found.
func (s *Service) GetUser(ctx context.Context, actor Actor, userID string) (*models.User, error) {
	if !actor.Role.IsAdmin() && actor.UserID != userID {
		return nil, ErrForbidden
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.OrganizationID != actor.OrganizationID {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// IssueTemporaryPassword replaces a member's credential with a one-time
// temporary password, ends their sessions and emails the password. The
// member must set a new password at next sign-in.
func (s *Service) IssueTemporaryPassword(ctx context.Context, actor Actor, userID string) error {
	err := s.issueTemporaryPassword(ctx, actor, userID)
	s.finish(ctx, "temporary_password", actor.OrganizationID, userID, err, map[string]interface{}{"issued_by": actor.UserID})
	return err
}

func (s *Service) issueTemporaryPassword(ctx context.Context, actor Actor, userID string) error {
	if !actor.Role.IsAdmin() {
		return ErrForbidden
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.OrganizationID != actor.OrganizationID {
		return ErrUserNotFound
	}
	if !user.IsActive() {
		return ErrUserInactive
	}

	temp, err := auth.GenerateTemporaryPassword(s.cfg.TemporaryPasswordLength)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(temp, s.hashCost)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Users.SetTemporaryPassword(ctx, user.ID, hash, now); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return dependencyError("save temporary password", err)
		}
		if err := s.repos.Sessions.RevokeAllForUser(ctx, user.ID, now); err != nil {
			return dependencyError("revoke sessions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg := email.Message{
		From:    s.cfg.Sender,
		To:      user.Email,
		Subject: "Temporary Password",
		HTML: fmt.Sprintf(`<p>Your temporary password is: <strong>%s</strong></p><p>Please login and set a new password.</p>`,
			html.EscapeString(temp)),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return nil
}
