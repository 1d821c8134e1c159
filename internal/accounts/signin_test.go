package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"releaseguard/internal/accounts"
)

func TestSignInFailures(t *testing.T) {
	h := newHarness(t)
	h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")
	h.register(t, "ORG1", "Acme", "pending@x.com", "Pending", "QA")
	inactive := h.activeUser(t, "ORG1", "gone@x.com", "QA", "Passw0rd!")
	noRole := h.activeUser(t, "ORG1", "norole@x.com", "QA", "Passw0rd!")
	h.activeUser(t, "ORG2", "c@x.com", "QA", "Passw0rd!")

	h.exec(t, `UPDATE users SET status = 'inactive' WHERE id = ?`, inactive.UserID)
	h.exec(t, `DELETE FROM user_roles WHERE user_id = ?`, noRole.UserID)
	h.exec(t, `UPDATE organizations SET status = 'inactive' WHERE code = 'ORG2'`)

	tests := []struct {
		name     string
		code     string
		email    string
		password string
		want     error
	}{
		{"unknown organization", "NOPE", "a@x.com", "Passw0rd!", accounts.ErrInvalidOrganization},
		{"inactive organization", "ORG2", "c@x.com", "Passw0rd!", accounts.ErrInvalidOrganization},
		{"unknown user", "ORG1", "who@x.com", "Passw0rd!", accounts.ErrUserNotFound},
		{"user in other organization", "ORG1", "c@x.com", "Passw0rd!", accounts.ErrUserNotFound},
		{"inactive user", "ORG1", "gone@x.com", "Passw0rd!", accounts.ErrUserInactive},
		{"wrong password", "ORG1", "a@x.com", "Passw0rd?", accounts.ErrInvalidCredential},
		{"must change without temporary credential", "ORG1", "pending@x.com", "anything", accounts.ErrInvalidTemporaryCredential},
		{"no role", "ORG1", "norole@x.com", "Passw0rd!", accounts.ErrRoleNotAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.signIn(tt.code, tt.email, tt.password)
			requireErr(t, err, tt.want)
			require.Nil(t, res)
		})
	}
}

func TestSignInFoldsEmail(t *testing.T) {
	h := newHarness(t)
	h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")

	res, err := h.signIn("ORG1", "  A@X.COM\t", "Passw0rd!")
	require.NoError(t, err)
	require.Equal(t, accounts.DestinationMyWork, res.Destination)
}

func TestSignInExpiryBoundary(t *testing.T) {
	h := newHarness(t)
	res := h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")

	user, err := h.store.Users.GetByID(context.Background(), res.UserID)
	require.NoError(t, err)
	expiry := time.UnixMilli(*user.PasswordExpiresAt)

	h.now = expiry.Add(-time.Millisecond)
	_, err = h.signIn("ORG1", "a@x.com", "Passw0rd!")
	require.NoError(t, err, "one millisecond before expiry is still valid")

	h.now = expiry
	_, err = h.signIn("ORG1", "a@x.com", "Passw0rd!")
	requireErr(t, err, accounts.ErrCredentialExpired)

	h.now = expiry.Add(time.Millisecond)
	_, err = h.signIn("ORG1", "a@x.com", "Passw0rd!")
	requireErr(t, err, accounts.ErrCredentialExpired)
}

func TestSignInRoutesByRole(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		email string
		role  string
		want  string
	}{
		{"root@x.com", "Super admin", accounts.DestinationOrganizationOverview},
		{"boss@x.com", "Company Admin", accounts.DestinationCompanyAdmin},
		{"qalead@x.com", "QA lead", accounts.DestinationProjects},
		{"devlead@x.com", "Dev Lead", accounts.DestinationProjects},
		{"dev@x.com", "Dev", accounts.DestinationMyWork},
		{"pm@x.com", "Project Manager", accounts.DestinationMyWork},
		{"odd@x.com", "Release Captain", accounts.DestinationMyWork},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			h.activeUser(t, "ORG1", tt.email, tt.role, "Passw0rd!")
			res, err := h.signIn("ORG1", tt.email, "Passw0rd!")
			require.NoError(t, err)
			require.Equal(t, tt.want, res.Destination)
			require.Equal(t, accounts.NormalizeRoleName(tt.role), res.Session.Role)
		})
	}
}

func TestSignInHighestRoleWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")
	lead := h.register(t, "ORG1", "Acme", "b@x.com", "Bob", "Dev Lead")

	leadUser, _ := h.store.Users.GetByID(ctx, lead.UserID)
	require.NoError(t, h.store.Roles.Assign(ctx, res.UserID, *leadUser.RoleID, 1))

	signIn, err := h.signIn("ORG1", "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	require.Equal(t, accounts.DestinationProjects, signIn.Destination)
	require.Equal(t, "dev-lead", signIn.Session.Role)
}

func TestSignOutRevokesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")

	res, err := h.signIn("ORG1", "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	actor := h.actor(t, res)

	_, err = h.svc.ActiveSession(ctx, actor.SessionID)
	require.NoError(t, err)

	require.NoError(t, h.svc.SignOut(ctx, actor))
	_, err = h.svc.ActiveSession(ctx, actor.SessionID)
	requireErr(t, err, accounts.ErrSessionExpired)
}

func TestSessionExpiresWithClock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.activeUser(t, "ORG1", "a@x.com", "QA", "Passw0rd!")

	res, err := h.signIn("ORG1", "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	actor := h.actor(t, res)

	h.now = res.ExpiresAt
	_, err = h.svc.ActiveSession(ctx, actor.SessionID)
	requireErr(t, err, accounts.ErrSessionExpired)

	_, err = h.svc.ActiveSession(ctx, "missing")
	requireErr(t, err, accounts.ErrSessionExpired)
}

func TestProfileDerivesDestinationServerSide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.activeUser(t, "ORG1", "a@x.com", "QA lead", "Passw0rd!")

	res, err := h.signIn("ORG1", "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	actor := h.actor(t, res)

	// A forged role on the actor does not change the stored answer.
	actor.Role = accounts.ParseRole("super-admin")
	p, err := h.svc.Profile(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "qa-lead", p.Role)
	require.Equal(t, accounts.DestinationProjects, p.Destination)
	require.Equal(t, "ORG1", p.Organization.Code)

	org, err := h.svc.Organization(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, p.Organization.ID, org.ID)
}
