package handlers

import (
	"net/http"

	"releaseguard/internal/accounts"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/errors"
)

type OrgHandler struct {
	svc *accounts.Service
}

func NewOrgHandler(svc *accounts.Service) *OrgHandler {
	return &OrgHandler{svc: svc}
}

// GetCurrent returns the caller's organization as stored now, not the copy
// TenantMiddleware loaded.
func (h *OrgHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Authentication required", nil)
		return
	}
	org, err := h.svc.Organization(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, org)
}
