package repositories

import (
	"context"
	"database/sql"

	"releaseguard/internal/platform/models"
)

type OrganizationRepository struct {
	q *querier
}

const organizationColumns = `id, name, code, status, owner_user_id, plan_tier, created_at, updated_at`

func scanOrganization(row interface{ Scan(...interface{}) error }) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Code, &org.Status, &org.OwnerUserID, &org.PlanTier, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO organizations (id, name, code, status, owner_user_id, plan_tier, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, org.ID, org.Name, org.Code, org.Status, org.OwnerUserID, org.PlanTier, org.CreatedAt, org.UpdatedAt)
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org, err := scanOrganization(r.q.queryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

// GetByCode matches the code exactly. Codes are unique, so at most one row
// is returned.
func (r *OrganizationRepository) GetByCode(ctx context.Context, code string) (*models.Organization, error) {
	org, err := scanOrganization(r.q.queryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE code = ?`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

// SetOwnerIfUnset assigns the owner only when none is recorded. It reports
// whether the row changed.
func (r *OrganizationRepository) SetOwnerIfUnset(ctx context.Context, orgID, userID string, now int64) (bool, error) {
	res, err := r.q.exec(ctx, `
		UPDATE organizations SET owner_user_id = ?, updated_at = ?
		WHERE id = ? AND owner_user_id IS NULL
	`, userID, now, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
