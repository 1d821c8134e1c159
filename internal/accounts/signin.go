package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"releaseguard/internal/pkg/validator"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/models"
)

type SignInInput struct {
	OrganizationCode string
	Email            string
	Password         string
}

// SessionInfo is the advisory session object handed to the client. It is not
// trusted on later requests; the signed access token is.
type SessionInfo struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
}

// SignInResult is either a set-password directive (temporary credential
// accepted) or a full session.
type SignInResult struct {
	Directive
	AccessToken string
	ExpiresAt   time.Time
	Session     *SessionInfo
}

func (s *Service) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	res, user, err := s.signIn(ctx, in)
	var orgID, userID string
	if user != nil {
		orgID, userID = user.OrganizationID, user.ID
	}
	var meta map[string]interface{}
	if res != nil {
		meta = map[string]interface{}{"destination": res.Destination}
	}
	s.finish(ctx, "signin", orgID, userID, err, meta)
	return res, err
}

func (s *Service) signIn(ctx context.Context, in SignInInput) (*SignInResult, *models.User, error) {
	// Organization must exist and be active.
	org, err := s.repos.Organizations.GetByCode(ctx, strings.TrimSpace(in.OrganizationCode))
	if err != nil {
		return nil, nil, err
	}
	if org == nil || !org.IsActive() {
		return nil, nil, ErrInvalidOrganization
	}

	// User lookup is scoped to the organization and ignores case.
	user, err := s.repos.Users.GetByOrganizationAndEmail(ctx, org.ID, validator.FoldEmail(in.Email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, user, ErrUserInactive
	}

	if user.MustChangePassword {
		if !auth.CheckPassword(user.TempPasswordHash, in.Password) {
			return nil, user, ErrInvalidTemporaryCredential
		}
		ticket, err := s.tokens.GenerateBootstrapTicket(user.ID, bootstrapCycle(user))
		if err != nil {
			return nil, user, fmt.Errorf("issue bootstrap ticket: %w", err)
		}
		return &SignInResult{Directive: Directive{
			Destination:     DestinationSetPassword,
			UserID:          user.ID,
			BootstrapTicket: ticket,
		}}, user, nil
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, user, ErrInvalidCredential
	}

	now := s.now()
	if user.PasswordExpiresAt != nil && *user.PasswordExpiresAt <= now.UnixMilli() {
		return nil, user, ErrCredentialExpired
	}

	names, err := s.repos.Roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, user, err
	}
	role, ok := PrimaryRole(names)
	if !ok {
		return nil, user, ErrRoleNotAssigned
	}

	expiresAt := now.Add(s.cfg.SessionTTL)
	session := &models.Session{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           role.Name,
		ExpiresAt:      expiresAt.UnixMilli(),
		CreatedAt:      now.UnixMilli(),
	}
	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, user, dependencyError("create session", err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, org.ID, role.Name, session.ID, expiresAt)
	if err != nil {
		return nil, user, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID, now.UnixMilli()); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
	}

	return &SignInResult{
		Directive:   Directive{Destination: role.Destination(), UserID: user.ID},
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Session: &SessionInfo{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           role.Name,
		},
	}, user, nil
}
