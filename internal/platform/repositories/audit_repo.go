package repositories

import (
	"context"

	"releaseguard/internal/platform/models"
)

type AuditLogRepository struct {
	q *querier
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO audit_logs (id, organization_id, user_id, action, outcome, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.OrganizationID, entry.UserID, entry.Action, entry.Outcome, entry.Metadata, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}

func (r *AuditLogRepository) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.query(ctx, `
		SELECT id, organization_id, user_id, action, outcome, metadata, ip_address, user_agent, created_at
		FROM audit_logs WHERE organization_id = ?
		ORDER BY id DESC LIMIT ?
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.Action, &e.Outcome, &e.Metadata, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
