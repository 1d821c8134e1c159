package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"releaseguard/internal/platform/audit"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/metrics"
	"releaseguard/internal/platform/models"
	"releaseguard/internal/platform/repositories"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetByCode(ctx context.Context, code string) (*models.Organization, error)
	SetOwnerIfUnset(ctx context.Context, orgID, userID string, now int64) (bool, error)
}

type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	GetByName(ctx context.Context, orgID, name string) (*models.Role, error)
	Assign(ctx context.Context, userID, roleID string, now int64) error
	NamesForUser(ctx context.Context, userID string) ([]string, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOrganizationAndEmail(ctx context.Context, orgID, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*models.User, error)
	CompleteBootstrap(ctx context.Context, id, tempHash, passwordHash string, expiresAt, now int64) (bool, error)
	CompleteReset(ctx context.Context, id, tokenHash, passwordHash string, expiresAt, now int64) (bool, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, now int64) error
	SetTemporaryPassword(ctx context.Context, id, tempHash string, now int64) error
	UpdateLastLogin(ctx context.Context, id string, timestamp int64) error
}

type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string, now int64) error
	RevokeAllForUser(ctx context.Context, userID string, now int64) error
}

// Repositories is the Account Store as seen by the credential flows.
type Repositories struct {
	Tx            Transactor
	Organizations OrganizationStore
	Roles         RoleStore
	Users         UserStore
	Sessions      SessionStore
}

func StoreRepositories(s *repositories.Store) Repositories {
	return Repositories{
		Tx:            s,
		Organizations: s.Organizations,
		Roles:         s.Roles,
		Users:         s.Users,
		Sessions:      s.Sessions,
	}
}

// TokenIssuer signs session tokens and bootstrap tickets.
type TokenIssuer interface {
	GenerateAccessToken(userID, orgID, role, sessionID string, expiresAt time.Time) (string, error)
	GenerateBootstrapTicket(userID, cycle string) (string, error)
	ValidateBootstrapTicket(ticket string) (userID, cycle string, err error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Config struct {
	PasswordValidityMonths  int
	ResetTokenTTL           time.Duration
	SessionTTL              time.Duration
	TemporaryPasswordLength int
	BaseURL                 string
	Sender                  email.Address
}

type Service struct {
	repos    Repositories
	tokens   TokenIssuer
	notifier email.Notifier
	auditor  Auditor
	cfg      Config
	now      func() time.Time
	hashCost int
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func NewService(repos Repositories, tokens TokenIssuer, notifier email.Notifier, cfg Config, opts ...Option) *Service {
	if cfg.PasswordValidityMonths <= 0 {
		cfg.PasswordValidityMonths = 3
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.TemporaryPasswordLength <= 0 {
		cfg.TemporaryPasswordLength = 10
	}

	s := &Service{
		repos:    repos,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock, exposed so callers agree on expiry decisions.
func (s *Service) Now() time.Time {
	return s.now()
}

// credentialExpiry is when a credential assigned at now stops being valid.
func (s *Service) credentialExpiry(now time.Time) int64 {
	return now.AddDate(0, s.cfg.PasswordValidityMonths, 0).UnixMilli()
}

func dependencyError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyWriteFailed, step, err)
}

// finish records a flow outcome in metrics, the audit log and the request log.
func (s *Service) finish(ctx context.Context, flow, orgID, userID string, err error, meta map[string]interface{}) {
	outcome := Outcome(err)
	metrics.RecordAuthEvent(flow, outcome)

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Entry{
			OrganizationID: orgID,
			UserID:         userID,
			Action:         flow,
			Outcome:        outcome,
			Metadata:       meta,
		})
	}

	logger := log.Ctx(ctx)
	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = logger.Info()
	case outcome == "internal_error" || outcome == "dependency_write_failed" || outcome == "notification_failed":
		ev = logger.Error().Err(err)
	default:
		ev = logger.Warn().Err(err)
	}
	ev.Str("flow", flow).
		Str("outcome", outcome).
		Str("organization_id", orgID).
		Str("user_id", userID).
		Msg("auth flow finished")
}
