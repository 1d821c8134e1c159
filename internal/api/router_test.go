package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"releaseguard/internal/accounts"
	"releaseguard/internal/api"
	"releaseguard/internal/api/handlers"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/platform/audit"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/config"
	"releaseguard/internal/platform/database"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/repositories"
)

type outbox struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) match(t *testing.T, re *regexp.Regexp) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent, "no email sent")
	m := re.FindStringSubmatch(o.sent[len(o.sent)-1].HTML)
	require.Len(t, m, 2)
	return m[1]
}

var (
	resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
	tempPwdPattern    = regexp.MustCompile(`<strong>([^<]+)</strong>`)
)

type testServer struct {
	handler http.Handler
	mail    *outbox
	db      *database.DB
}

type serverOption func(*config.Config)

func conceal(cfg *config.Config) { cfg.App.ConcealAccountExistence = true }

func strictLimit(cfg *config.Config) { cfg.RateLimit = config.RateLimitConfig{AuthPerMinute: 3, AuthBurst: 3} }

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{AuthPerMinute: 1000, AuthBurst: 1000},
		JWT:       config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour, BootstrapTicketTTL: 30 * time.Minute},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := database.Open(config.DatabaseConfig{URL: ":memory:", MaxConnections: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.Up))

	store := repositories.NewStore(db)
	tokens := auth.NewTokenService(cfg.JWT)
	mail := &outbox{}
	svc := accounts.NewService(
		accounts.StoreRepositories(store),
		tokens,
		mail,
		accounts.Config{SessionTTL: cfg.JWT.AccessTokenTTL, BaseURL: "http://app.test"},
		accounts.WithHashCost(bcrypt.MinCost),
		accounts.WithAuditor(audit.NewLogger(store.AuditLogs)),
	)

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(svc, cfg.App.ConcealAccountExistence),
		OrgHandler:       handlers.NewOrgHandler(svc),
		UserHandler:      handlers.NewUserHandler(svc),
		AuditHandler:     handlers.NewAuditHandler(store.AuditLogs),
		HealthHandler:    handlers.NewHealthHandler(db),
		MetricsHandler:   handlers.NewMetricsHandler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokens, svc),
		TenantMiddleware: middleware.NewTenantMiddleware(store.Organizations),
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimit),
	})
	return &testServer{handler: router, mail: mail, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var out map[string]interface{}
	if rr.Body.Len() > 0 && rr.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr.Code, out
}

// member signs a user up, sets their password and signs them in. It returns
// the access token.
func (s *testServer) member(t *testing.T, code, addr, role string) string {
	t.Helper()
	status, body := s.do(t, "POST", "/api/v1/auth/signup", map[string]string{
		"full_name":         "User " + addr,
		"email":             addr,
		"organization_name": "Org " + code,
		"organization_code": code,
		"role":              role,
	}, "")
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.do(t, "POST", "/api/v1/auth/set-password", map[string]string{
		"user_id":          body["user_id"].(string),
		"bootstrap_ticket": body["bootstrap_ticket"].(string),
		"password":         "Passw0rd!",
		"confirm_password": "Passw0rd!",
	}, "")
	require.Equal(t, http.StatusOK, status, body)

	return s.login(t, code, addr, "Passw0rd!")
}

func (s *testServer) login(t *testing.T, code, addr, password string) string {
	t.Helper()
	status, body := s.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"organization_code": code,
		"email":             addr,
		"password":          password,
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAccountJourney(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, "POST", "/api/v1/auth/signup", map[string]string{
		"full_name":         "Ada",
		"email":             "ada@acme.test",
		"organization_name": "Acme",
		"organization_code": "ACME",
		"role":              "Super Admin",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "/set-password", body["destination"])
	require.NotEmpty(t, body["bootstrap_ticket"])

	status, _ = s.do(t, "POST", "/api/v1/auth/signup", map[string]string{
		"full_name":         "Ada Again",
		"email":             "ADA@acme.test",
		"organization_name": "Other",
		"organization_code": "OTHER",
		"role":              "dev",
	}, "")
	require.Equal(t, http.StatusConflict, status)

	set := map[string]string{
		"user_id":          body["user_id"].(string),
		"bootstrap_ticket": body["bootstrap_ticket"].(string),
		"password":         "Passw0rd!",
		"confirm_password": "Passw0rd!",
	}
	status, out := s.do(t, "POST", "/api/v1/auth/set-password", set, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/login", out["destination"])

	status, out = s.do(t, "POST", "/api/v1/auth/set-password", set, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "SESSION_EXPIRED", out["code"])

	status, out = s.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"organization_code": "ACME",
		"email":             "ada@acme.test",
		"password":          "Passw0rd!",
	}, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/organization/overview", out["destination"])
	session := out["session"].(map[string]interface{})
	require.Equal(t, "super-admin", session["role"])
	token := out["access_token"].(string)

	status, out = s.do(t, "GET", "/api/v1/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/organization/overview", out["destination"])

	status, out = s.do(t, "GET", "/api/v1/organizations/current", nil, token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ACME", out["code"])
	require.Equal(t, "Acme", out["name"])
	require.Equal(t, "active", out["status"])

	status, out = s.do(t, "GET", "/api/v1/users", nil, token)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out["users"], 1)

	status, _ = s.do(t, "POST", "/api/v1/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, out = s.do(t, "GET", "/api/v1/me", nil, token)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "SESSION_EXPIRED", out["code"])
}

func TestSignupStoreFailure(t *testing.T) {
	s := newTestServer(t)
	_, err := s.db.Exec(`DROP TABLE user_roles`)
	require.NoError(t, err)

	status, out := s.do(t, "POST", "/api/v1/auth/signup", map[string]string{
		"full_name":         "Ada",
		"email":             "ada@acme.test",
		"organization_name": "Acme",
		"organization_code": "ACME",
		"role":              "QA",
	}, "")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "DEPENDENCY_WRITE_FAILED", out["code"])

	var orgs int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM organizations`).Scan(&orgs))
	require.Zero(t, orgs)
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.member(t, "ACME", "dev@acme.test", "dev")

	tests := []struct {
		name     string
		code     string
		email    string
		password string
		status   int
		errCode  string
	}{
		{name: "Unknown Organization", code: "NOPE", email: "dev@acme.test", password: "Passw0rd!", status: http.StatusUnauthorized, errCode: "INVALID_ORGANIZATION"},
		{name: "Unknown User", code: "ACME", email: "who@acme.test", password: "Passw0rd!", status: http.StatusNotFound, errCode: "NOT_FOUND"},
		{name: "Wrong Password", code: "ACME", email: "dev@acme.test", password: "Wr0ng!", status: http.StatusUnauthorized, errCode: "INVALID_CREDENTIAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := s.do(t, "POST", "/api/v1/auth/login", map[string]string{
				"organization_code": tt.code,
				"email":             tt.email,
				"password":          tt.password,
			}, "")
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.errCode, out["code"])
			require.NotEmpty(t, out["error"])
		})
	}
}

func TestForgetPasswordContract(t *testing.T) {
	s := newTestServer(t)
	s.member(t, "ACME", "dev@acme.test", "dev")

	status, _ := s.do(t, "POST", "/api/forget-password", map[string]string{"email": "  "}, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, "POST", "/api/forget-password", map[string]string{"email": "nobody@acme.test"}, "")
	require.Equal(t, http.StatusNotFound, status)

	status, out := s.do(t, "POST", "/api/forget-password", map[string]string{"email": "dev@acme.test"}, "")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out["message"])

	token := s.mail.match(t, resetTokenPattern)

	status, out = s.do(t, "GET", "/api/v1/auth/reset-password?token="+token, nil, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "dev@acme.test", out["email"])

	reset := map[string]string{"token": token, "password": "N3wPass!", "confirm_password": "N3wPass!"}
	status, _ = s.do(t, "POST", "/api/v1/auth/reset-password", reset, "")
	require.Equal(t, http.StatusOK, status)

	status, out = s.do(t, "POST", "/api/v1/auth/reset-password", reset, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_RESET_TOKEN", out["code"])

	s.login(t, "ACME", "dev@acme.test", "N3wPass!")

	s.mail.err = errors.New("provider down")
	status, out = s.do(t, "POST", "/api/forget-password", map[string]string{"email": "dev@acme.test"}, "")
	require.Equal(t, http.StatusInternalServerError, status)
	require.NotEmpty(t, out["error"])
	require.NotContains(t, out["error"], "provider down")
}

func TestForgetPasswordConcealed(t *testing.T) {
	s := newTestServer(t, conceal)

	status, out := s.do(t, "POST", "/api/forget-password", map[string]string{"email": "nobody@acme.test"}, "")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out["message"])
	require.Empty(t, s.mail.sent)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.member(t, "ACME", "boss@acme.test", "company-admin")
	dev := s.member(t, "ACME", "dev@acme.test", "dev")
	s.member(t, "GLOBEX", "other@globex.test", "admin")

	status, _ := s.do(t, "GET", "/api/v1/users", nil, dev)
	require.Equal(t, http.StatusForbidden, status)

	status, out := s.do(t, "GET", "/api/v1/users", nil, admin)
	require.Equal(t, http.StatusOK, status)
	users := out["users"].([]interface{})
	require.Len(t, users, 2)

	var devID string
	for _, u := range users {
		m := u.(map[string]interface{})
		require.NotContains(t, m, "password_hash")
		if m["email"] == "dev@acme.test" {
			devID = m["id"].(string)
		}
	}
	require.NotEmpty(t, devID)

	status, _ = s.do(t, "GET", "/api/v1/users/"+devID, nil, dev)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "POST", "/api/v1/users/"+devID+"/temporary-password", nil, dev)
	require.Equal(t, http.StatusForbidden, status)

	status, out = s.do(t, "POST", "/api/v1/users/"+devID+"/temporary-password", nil, admin)
	require.Equal(t, http.StatusOK, status, out)
	temp := s.mail.match(t, tempPwdPattern)

	// Issuing the temporary password ends the member's sessions.
	status, _ = s.do(t, "GET", "/api/v1/me", nil, dev)
	require.Equal(t, http.StatusUnauthorized, status)

	status, out = s.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"organization_code": "ACME",
		"email":             "dev@acme.test",
		"password":          temp,
	}, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/set-password", out["destination"])
	require.NotEmpty(t, out["bootstrap_ticket"])
	require.Empty(t, out["access_token"])

	status, out = s.do(t, "GET", "/api/v1/organizations/current/audit-logs?limit=5", nil, admin)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, "GET", "/api/v1/organizations/current/audit-logs?limit=zero", nil, admin)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, strictLimit)

	login := map[string]string{"organization_code": "ACME", "email": "a@acme.test", "password": "x"}
	for i := 0; i < 3; i++ {
		status, _ := s.do(t, "POST", "/api/v1/auth/login", login, "")
		require.NotEqual(t, http.StatusTooManyRequests, status)
	}

	status, out := s.do(t, "POST", "/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", out["code"])
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, out := s.do(t, "GET", "/healthz", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", out["status"])

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "go_goroutines")

	status, out = s.do(t, "GET", "/nope", nil, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", out["code"])
}
