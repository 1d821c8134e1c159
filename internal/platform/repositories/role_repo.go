package repositories

import (
	"context"
	"database/sql"

	"releaseguard/internal/platform/models"
)

type RoleRepository struct {
	q *querier
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO roles (id, organization_id, name, is_system_role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, role.ID, role.OrganizationID, role.Name, role.IsSystemRole, role.CreatedAt)
	return err
}

func (r *RoleRepository) GetByName(ctx context.Context, orgID, name string) (*models.Role, error) {
	role := &models.Role{}
	err := r.q.queryRow(ctx, `
		SELECT id, organization_id, name, is_system_role, created_at
		FROM roles WHERE organization_id = ? AND name = ?
	`, orgID, name).Scan(&role.ID, &role.OrganizationID, &role.Name, &role.IsSystemRole, &role.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

func (r *RoleRepository) Assign(ctx context.Context, userID, roleID string, now int64) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)
	`, userID, roleID, now)
	return err
}

// NamesForUser returns the stored names of every role assigned to the user.
func (r *RoleRepository) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.query(ctx, `
		SELECT roles.name FROM user_roles
		JOIN roles ON roles.id = user_roles.role_id
		WHERE user_roles.user_id = ?
		ORDER BY roles.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
