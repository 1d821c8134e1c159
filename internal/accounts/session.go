package accounts

import (
	"context"

	"releaseguard/internal/platform/models"
)

// Actor is the authenticated caller, derived from a verified session.
type Actor struct {
	UserID         string
	OrganizationID string
	SessionID      string
	Role           Role
}

type Profile struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization"`
	Role         string               `json:"role"`
	Destination  string               `json:"destination"`
}

// ActiveSession returns the session if it is neither revoked nor expired.
func (s *Service) ActiveSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Valid(s.now().UnixMilli()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

func (s *Service) SignOut(ctx context.Context, actor Actor) error {
	err := s.repos.Sessions.Revoke(ctx, actor.SessionID, s.now().UnixMilli())
	s.finish(ctx, "signout", actor.OrganizationID, actor.UserID, err, nil)
	return err
}

// Profile re-derives the caller's role and destination from stored state
// rather than from anything the client holds.
func (s *Service) Profile(ctx context.Context, actor Actor) (*Profile, error) {
	user, err := s.repos.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.OrganizationID != actor.OrganizationID {
		return nil, ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	org, err := s.repos.Organizations.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrInvalidOrganization
	}

	names, err := s.repos.Roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	role, ok := PrimaryRole(names)
	if !ok {
		return nil, ErrRoleNotAssigned
	}

	return &Profile{
		User:         user,
		Organization: org,
		Role:         role.Name,
		Destination:  role.Destination(),
	}, nil
}

func (s *Service) Organization(ctx context.Context, actor Actor) (*models.Organization, error) {
	org, err := s.repos.Organizations.GetByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrInvalidOrganization
	}
	return org, nil
}
