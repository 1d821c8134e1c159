package accounts

import (
	"context"
	"fmt"

	"releaseguard/internal/pkg/validator"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/models"
)

type SetPasswordInput struct {
	// UserID is optional. When set it must match the ticket's user.
	UserID       string
	Ticket       string
	Password     string
	Confirmation string
}

type ResetPasswordInput struct {
	Token        string
	Password     string
	Confirmation string
}

func checkNewCredential(password, confirmation string) error {
	if err := validator.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakCredential, err)
	}
	if password != confirmation {
		return ErrConfirmationMismatch
	}
	return nil
}

// SetPassword completes the must-change step for a user holding a bootstrap
// ticket. It succeeds at most once per must-change cycle; later calls get
// ErrSessionExpired.
func (s *Service) SetPassword(ctx context.Context, in SetPasswordInput) (*Directive, error) {
	userID, err := s.setPassword(ctx, in)
	s.finish(ctx, "bootstrap", "", userID, err, nil)
	if err != nil {
		return nil, err
	}
	return &Directive{Destination: DestinationLogin, UserID: userID}, nil
}

func (s *Service) setPassword(ctx context.Context, in SetPasswordInput) (string, error) {
	if err := checkNewCredential(in.Password, in.Confirmation); err != nil {
		return in.UserID, err
	}

	userID, cycle, err := s.tokens.ValidateBootstrapTicket(in.Ticket)
	if err != nil {
		return in.UserID, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	if in.UserID != "" && in.UserID != userID {
		return in.UserID, ErrSessionExpired
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return userID, err
	}
	if user == nil || !user.MustChangePassword {
		return userID, ErrSessionExpired
	}
	if cycle != bootstrapCycle(user) {
		// Issued before the current temporary credential.
		return userID, ErrSessionExpired
	}

	hash, err := auth.HashPassword(in.Password, s.hashCost)
	if err != nil {
		return userID, err
	}

	now := s.now()
	ok, err := s.repos.Users.CompleteBootstrap(ctx, userID, deref(user.TempPasswordHash), hash, s.credentialExpiry(now), now.UnixMilli())
	if err != nil {
		return userID, dependencyError("save password", err)
	}
	if !ok {
		// Another request consumed the must-change state first.
		return userID, ErrSessionExpired
	}
	return userID, nil
}

// bootstrapCycle identifies the user's current must-change state. It is empty
// until a temporary credential is issued and changes with every issuance.
func bootstrapCycle(u *models.User) string {
	if u.TempPasswordHash == nil || *u.TempPasswordHash == "" {
		return ""
	}
	return auth.Fingerprint(*u.TempPasswordHash)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// VerifyResetToken checks a reset link before the form is shown. A token
// whose expiry is at or before now is expired.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	user, err := s.repos.Users.GetByResetToken(ctx, auth.Fingerprint(token))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidResetToken
	}
	if user.ResetTokenExpiresAt == nil || *user.ResetTokenExpiresAt <= s.now().UnixMilli() {
		return nil, ErrResetTokenExpired
	}
	return user, nil
}

// ResetPassword consumes a reset token and installs the new credential in
// the same update. The token cannot be used again.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (*Directive, error) {
	user, err := s.resetPassword(ctx, in)
	var orgID, userID string
	if user != nil {
		orgID, userID = user.OrganizationID, user.ID
	}
	s.finish(ctx, "reset", orgID, userID, err, nil)
	if err != nil {
		return nil, err
	}
	return &Directive{Destination: DestinationLogin, UserID: userID}, nil
}

func (s *Service) resetPassword(ctx context.Context, in ResetPasswordInput) (*models.User, error) {
	if err := checkNewCredential(in.Password, in.Confirmation); err != nil {
		return nil, err
	}

	user, err := s.VerifyResetToken(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.hashCost)
	if err != nil {
		return user, err
	}

	now := s.now()
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repos.Users.CompleteReset(ctx, user.ID, auth.Fingerprint(in.Token), hash, s.credentialExpiry(now), now.UnixMilli())
		if err != nil {
			return dependencyError("save password", err)
		}
		if !ok {
			return ErrInvalidResetToken
		}
		if err := s.repos.Sessions.RevokeAllForUser(ctx, user.ID, now.UnixMilli()); err != nil {
			return dependencyError("revoke sessions", err)
		}
		return nil
	})
	return user, err
}
