package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/errors"
	"releaseguard/internal/platform/models"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

type AuditLister interface {
	ListByOrganization(ctx context.Context, orgID string, limit int) ([]*models.AuditLog, error)
}

type AuditHandler struct {
	logs AuditLister
}

func NewAuditHandler(logs AuditLister) *AuditHandler {
	return &AuditHandler{logs: logs}
}

type AuditEntry struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	UserID         string                 `json:"user_id"`
	Action         string                 `json:"action"`
	Outcome        string                 `json:"outcome"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	CreatedAt      int64                  `json:"created_at"`
}

// List returns the caller's organization audit trail, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxAuditLimit)
	}

	logs, err := h.logs.ListByOrganization(r.Context(), actor.OrganizationID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries := make([]AuditEntry, 0, len(logs))
	for _, l := range logs {
		var meta map[string]interface{}
		if l.Metadata != "" {
			json.Unmarshal([]byte(l.Metadata), &meta)
		}
		entries = append(entries, AuditEntry{
			ID:             l.ID,
			OrganizationID: l.OrganizationID,
			UserID:         l.UserID,
			Action:         l.Action,
			Outcome:        l.Outcome,
			Metadata:       meta,
			IPAddress:      l.IPAddress,
			UserAgent:      l.UserAgent,
			CreatedAt:      l.CreatedAt,
		})
	}

	errors.WriteJSON(w, http.StatusOK, entries)
}
