package accounts_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"releaseguard/internal/accounts"
	"releaseguard/internal/platform/audit"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/config"
	"releaseguard/internal/platform/database"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/repositories"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg email.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) email.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no email sent")
	return n.sent[len(n.sent)-1]
}

var (
	resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
	tempPwdPattern    = regexp.MustCompile(`<strong>([^<]+)</strong>`)
)

type harness struct {
	db       *database.DB
	store    *repositories.Store
	tokens   *auth.TokenService
	notifier *recordingNotifier
	svc      *accounts.Service
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:", MaxConnections: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.Up))

	h := &harness{
		db:       db,
		store:    repositories.NewStore(db),
		notifier: &recordingNotifier{},
		now:      time.Now().UTC().Truncate(time.Millisecond),
	}
	h.tokens = auth.NewTokenService(config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenTTL:     12 * time.Hour,
		BootstrapTicketTTL: 30 * time.Minute,
	})
	h.svc = accounts.NewService(
		accounts.StoreRepositories(h.store),
		h.tokens,
		h.notifier,
		accounts.Config{
			BaseURL: "http://app.test/",
			Sender:  email.Address{Name: "ReleaseGuard", Email: "no-reply@releaseguard.test"},
		},
		accounts.WithClock(func() time.Time { return h.now }),
		accounts.WithHashCost(bcrypt.MinCost),
		accounts.WithAuditor(audit.NewLogger(h.store.AuditLogs)),
	)
	return h
}

func (h *harness) register(t *testing.T, code, orgName, addr, name, role string) *accounts.RegistrationResult {
	t.Helper()
	res, err := h.svc.Register(context.Background(), accounts.RegistrationInput{
		FullName:         name,
		Email:            addr,
		OrganizationName: orgName,
		OrganizationCode: code,
		RoleName:         role,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) bootstrap(t *testing.T, d accounts.Directive, password string) {
	t.Helper()
	_, err := h.svc.SetPassword(context.Background(), accounts.SetPasswordInput{
		UserID:       d.UserID,
		Ticket:       d.BootstrapTicket,
		Password:     password,
		Confirmation: password,
	})
	require.NoError(t, err)
}

// activeUser registers a user and sets their permanent password.
func (h *harness) activeUser(t *testing.T, code, addr, role, password string) *accounts.RegistrationResult {
	t.Helper()
	res := h.register(t, code, "Org "+code, addr, "User "+addr, role)
	h.bootstrap(t, res.Directive, password)
	return res
}

func (h *harness) signIn(code, addr, password string) (*accounts.SignInResult, error) {
	return h.svc.SignIn(context.Background(), accounts.SignInInput{
		OrganizationCode: code,
		Email:            addr,
		Password:         password,
	})
}

func (h *harness) actor(t *testing.T, res *accounts.SignInResult) accounts.Actor {
	t.Helper()
	require.NotEmpty(t, res.AccessToken)
	claims, err := h.tokens.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	return accounts.Actor{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		SessionID:      claims.SessionID(),
		Role:           accounts.ParseRole(claims.Role),
	}
}

func (h *harness) exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := h.db.Exec(query, args...)
	require.NoError(t, err)
}

func requireErr(t *testing.T, err, target error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "got %v, want %v", err, target)
}
