package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "releaseguard/internal/api/context"
	"releaseguard/internal/api/handlers"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/errors"
	"releaseguard/internal/platform/metrics"
)

// Roles allowed to manage members of their organization.
var adminRoles = []string{"super-admin", "company-admin", "admin"}

type Dependencies struct {
	AuthHandler      *handlers.AuthHandler
	OrgHandler       *handlers.OrgHandler
	UserHandler      *handlers.UserHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	RateLimiter      *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	handle := func(method, path string, h httprouter.Handle) {
		router.Handle(method, path, metrics.Instrument(path, h))
	}

	// Ops
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	limit := deps.RateLimiter.Handle

	// Authentication routes
	handle(http.MethodPost, "/api/v1/auth/signup", chain(deps.AuthHandler.Signup, limit))
	handle(http.MethodPost, "/api/v1/auth/login", chain(deps.AuthHandler.Login, limit))
	handle(http.MethodPost, "/api/v1/auth/set-password", chain(deps.AuthHandler.SetPassword, limit))
	handle(http.MethodGet, "/api/v1/auth/reset-password", chain(deps.AuthHandler.VerifyReset, limit))
	handle(http.MethodPost, "/api/v1/auth/reset-password", chain(deps.AuthHandler.ResetPassword, limit))
	handle(http.MethodPost, "/api/forget-password", chain(deps.AuthHandler.ForgetPassword, limit))

	// Middleware references
	authMid := deps.AuthMiddleware
	tenantMid := deps.TenantMiddleware

	handle(http.MethodPost, "/api/v1/auth/logout",
		chain(deps.AuthHandler.Logout, authMid.Handle))
	handle(http.MethodGet, "/api/v1/me",
		chain(deps.AuthHandler.Me, authMid.Handle, tenantMid.Handle))

	// Organization
	handle(http.MethodGet, "/api/v1/organizations/current",
		chain(deps.OrgHandler.GetCurrent, authMid.Handle, tenantMid.Handle))
	handle(http.MethodGet, "/api/v1/organizations/current/audit-logs",
		chain(deps.AuditHandler.List, authMid.Handle, tenantMid.Handle, requireRole(adminRoles...)))

	// User management
	handle(http.MethodGet, "/api/v1/users",
		chain(deps.UserHandler.List, authMid.Handle, tenantMid.Handle, requireRole(adminRoles...)))
	handle(http.MethodGet, "/api/v1/users/:user_id",
		chain(deps.UserHandler.Get, authMid.Handle, tenantMid.Handle))
	handle(http.MethodPost, "/api/v1/users/:user_id/temporary-password",
		chain(deps.UserHandler.IssueTemporaryPassword, authMid.Handle, tenantMid.Handle, requireRole(adminRoles...)))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

// requireRole checks the role recorded on the caller's session.
func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, ok := middleware.ActorFrom(r.Context())

			allowed := false
			for _, role := range roles {
				if ok && actor.Role.Name == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
