package repositories

import (
	"context"
	"database/sql"

	"releaseguard/internal/platform/models"
)

type SessionRepository struct {
	q *querier
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO sessions (id, user_id, organization_id, role, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.OrganizationID, s.Role, s.ExpiresAt, s.RevokedAt, s.CreatedAt)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	err := r.q.queryRow(ctx, `
		SELECT id, user_id, organization_id, role, expires_at, revoked_at, created_at
		FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.UserID, &s.OrganizationID, &s.Role, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Revoke marks an active session revoked. Revoking twice is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, id string, now int64) error {
	_, err := r.q.exec(ctx, `UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, now, id)
	return err
}

// RevokeAllForUser ends every live session of a user, used when their
// credential is replaced.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, now int64) error {
	_, err := r.q.exec(ctx, `UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`, now, userID)
	return err
}

// PurgeEnded deletes sessions that expired or were revoked before cutoff.
func (r *SessionRepository) PurgeEnded(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.q.exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)
	`, cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
