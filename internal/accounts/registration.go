package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"releaseguard/internal/pkg/validator"
	"releaseguard/internal/platform/models"
)

type RegistrationInput struct {
	FullName         string
	Email            string
	OrganizationName string
	OrganizationCode string
	RoleName         string
}

// Directive tells the caller where to send the user next. BootstrapTicket is
// set only when Destination is the set-password step.
type Directive struct {
	Destination     string
	UserID          string
	BootstrapTicket string
}

type RegistrationResult struct {
	Directive
	OrganizationID string
}

func (in *RegistrationInput) validate() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	in.OrganizationCode = strings.TrimSpace(in.OrganizationCode)
	in.Email = validator.NormalizeEmail(in.Email)

	switch {
	case in.FullName == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case in.OrganizationName == "":
		return fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	case in.OrganizationCode == "":
		return fmt.Errorf("%w: organization code is required", ErrInvalidInput)
	case NormalizeRoleName(in.RoleName) == "":
		return fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	if err := validator.ValidateEmail(in.Email); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// Register creates the user for a (possibly new) organization and role and
// routes them to the set-password step. Email addresses are unique across
// all organizations.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*RegistrationResult, error) {
	if err := in.validate(); err != nil {
		s.finish(ctx, "registration", "", "", err, nil)
		return nil, err
	}

	now := s.now()
	nowMs := now.UnixMilli()
	roleName := NormalizeRoleName(in.RoleName)

	var user *models.User
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.repos.Users.EmailExists(ctx, validator.FoldEmail(in.Email))
		if err != nil {
			return dependencyError("check existing account", err)
		}
		if exists {
			return ErrDuplicateAccount
		}

		org, err := s.resolveOrganization(ctx, in, now)
		if err != nil {
			return err
		}

		role, err := s.resolveRole(ctx, org.ID, roleName, now)
		if err != nil {
			return err
		}

		user = &models.User{
			ID:                 uuid.New().String(),
			OrganizationID:     org.ID,
			RoleID:             &role.ID,
			FullName:           in.FullName,
			Email:              in.Email,
			Status:             models.StatusActive,
			MustChangePassword: true,
			CreatedAt:          nowMs,
			UpdatedAt:          nowMs,
		}
		if err := s.repos.Users.Create(ctx, user); err != nil {
			return dependencyError("create user", err)
		}
		if err := s.repos.Roles.Assign(ctx, user.ID, role.ID, nowMs); err != nil {
			return dependencyError("assign role", err)
		}

		if org.OwnerUserID == nil {
			if _, err := s.repos.Organizations.SetOwnerIfUnset(ctx, org.ID, user.ID, nowMs); err != nil {
				return dependencyError("set organization owner", err)
			}
		}
		return nil
	})
	if err != nil {
		s.finish(ctx, "registration", "", "", err, map[string]interface{}{"organization_code": in.OrganizationCode})
		return nil, err
	}

	ticket, err := s.tokens.GenerateBootstrapTicket(user.ID, bootstrapCycle(user))
	if err != nil {
		err = fmt.Errorf("issue bootstrap ticket: %w", err)
		s.finish(ctx, "registration", user.OrganizationID, user.ID, err, nil)
		return nil, err
	}

	s.finish(ctx, "registration", user.OrganizationID, user.ID, nil, map[string]interface{}{"role": roleName})
	return &RegistrationResult{
		Directive: Directive{
			Destination:     DestinationSetPassword,
			UserID:          user.ID,
			BootstrapTicket: ticket,
		},
		OrganizationID: user.OrganizationID,
	}, nil
}

// resolveOrganization finds the organization by exact code or creates it as
// active.
func (s *Service) resolveOrganization(ctx context.Context, in RegistrationInput, now time.Time) (*models.Organization, error) {
	org, err := s.repos.Organizations.GetByCode(ctx, in.OrganizationCode)
	if err != nil {
		return nil, dependencyError("find organization", err)
	}
	if org != nil {
		return org, nil
	}

	org = &models.Organization{
		ID:        uuid.New().String(),
		Name:      in.OrganizationName,
		Code:      in.OrganizationCode,
		Status:    models.StatusActive,
		PlanTier:  "free",
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	if err := s.repos.Organizations.Create(ctx, org); err != nil {
		return nil, dependencyError("create organization", err)
	}
	return org, nil
}

func (s *Service) resolveRole(ctx context.Context, orgID, name string, now time.Time) (*models.Role, error) {
	role, err := s.repos.Roles.GetByName(ctx, orgID, name)
	if err != nil {
		return nil, dependencyError("find role", err)
	}
	if role != nil {
		return role, nil
	}

	role = &models.Role{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Name:           name,
		IsSystemRole:   ParseRole(name).Kind != RoleOther,
		CreatedAt:      now.UnixMilli(),
	}
	if err := s.repos.Roles.Create(ctx, role); err != nil {
		return nil, dependencyError("create role", err)
	}
	return role, nil
}
