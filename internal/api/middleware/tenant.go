package middleware

import (
	"context"
	"net/http"

	apiContext "releaseguard/internal/api/context"
	"releaseguard/internal/pkg/errors"
	"releaseguard/internal/platform/models"
)

type TenantContext struct {
	OrgID        string
	OrgCode      string
	Organization *models.Organization
}

type OrganizationLoader interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
}

type TenantMiddleware struct {
	orgs OrganizationLoader
}

func NewTenantMiddleware(orgs OrganizationLoader) *TenantMiddleware {
	return &TenantMiddleware{orgs: orgs}
}

// Handle resolves the caller's organization. Requests from a deactivated
// organization are refused even while their session is live.
func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
			return
		}

		org, err := m.orgs.GetByID(r.Context(), actor.OrganizationID)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load organization", nil)
			return
		}
		if org == nil {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Organization not found", nil)
			return
		}
		if !org.IsActive() {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeInvalidOrg, "Organization is inactive", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Organization, &TenantContext{
			OrgID:        org.ID,
			OrgCode:      org.Code,
			Organization: org,
		})

		next(w, r.WithContext(ctx))
	}
}

// TenantFrom returns the organization stored by TenantMiddleware.
func TenantFrom(ctx context.Context) (*TenantContext, bool) {
	tenant, ok := ctx.Value(apiContext.Organization).(*TenantContext)
	return tenant, ok && tenant != nil
}
