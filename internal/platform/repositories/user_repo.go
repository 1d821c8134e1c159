package repositories

import (
	"context"
	"database/sql"

	"releaseguard/internal/platform/models"
)

type UserRepository struct {
	q *querier
}

const userColumns = `id, organization_id, role_id, full_name, email, status, password_hash, temp_password_hash,
	must_change_password, password_expires_at, reset_token_hash, reset_token_expires_at, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.OrganizationID, &u.RoleID, &u.FullName, &u.Email, &u.Status, &u.PasswordHash, &u.TempPasswordHash,
		&u.MustChangePassword, &u.PasswordExpiresAt, &u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO users (id, organization_id, role_id, full_name, email, status, password_hash, temp_password_hash,
			must_change_password, password_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.OrganizationID, u.RoleID, u.FullName, u.Email, u.Status, u.PasswordHash, u.TempPasswordHash,
		u.MustChangePassword, u.PasswordExpiresAt, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// EmailExists checks the address against every organization, ignoring case.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE lower(email) = lower(?)`, email).Scan(&n)
	return n > 0, err
}

// GetByEmail requires exactly one case-insensitive match. It returns
// ErrNotFound or ErrMultipleRows otherwise.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := r.q.query(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?) LIMIT 2`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func (r *UserRepository) GetByOrganizationAndEmail(ctx context.Context, orgID, email string) (*models.User, error) {
	u, err := scanUser(r.q.queryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE organization_id = ? AND lower(email) = lower(?)
	`, orgID, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = ?`, tokenHash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.User, error) {
	rows, err := r.q.query(ctx, `SELECT `+userColumns+` FROM users WHERE organization_id = ? ORDER BY created_at, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CompleteBootstrap installs the permanent credential for a user that still
// has to set one. tempHash is the temporary credential the caller saw, empty
// when none was issued. It reports false when the must-change flag was
// already cleared or the temporary credential was replaced, so a bootstrap
// can succeed at most once per cycle.
func (r *UserRepository) CompleteBootstrap(ctx context.Context, id, tempHash, passwordHash string, expiresAt, now int64) (bool, error) {
	res, err := r.q.exec(ctx, `
		UPDATE users SET password_hash = ?, temp_password_hash = NULL, must_change_password = FALSE,
			password_expires_at = ?, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		WHERE id = ? AND must_change_password = TRUE AND COALESCE(temp_password_hash, '') = ?
	`, passwordHash, expiresAt, now, id, tempHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CompleteReset installs the permanent credential only while tokenHash is
// still the user's current reset token.
func (r *UserRepository) CompleteReset(ctx context.Context, id, tokenHash, passwordHash string, expiresAt, now int64) (bool, error) {
	res, err := r.q.exec(ctx, `
		UPDATE users SET password_hash = ?, temp_password_hash = NULL, must_change_password = FALSE,
			password_expires_at = ?, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		WHERE id = ? AND reset_token_hash = ?
	`, passwordHash, expiresAt, now, id, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetResetToken replaces any earlier token, so only the latest one stays valid.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, now int64) error {
	res, err := r.q.exec(ctx, `
		UPDATE users SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ? WHERE id = ?
	`, tokenHash, expiresAt, now, id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// SetTemporaryPassword replaces the current credential with a temporary one
// and forces a credential change at next sign-in.
func (r *UserRepository) SetTemporaryPassword(ctx context.Context, id, tempHash string, now int64) error {
	res, err := r.q.exec(ctx, `
		UPDATE users SET temp_password_hash = ?, must_change_password = TRUE, password_hash = NULL,
			password_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`, tempHash, now, id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, timestamp int64) error {
	_, err := r.q.exec(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, timestamp, id)
	return err
}

// PurgeExpiredResetTokens clears reset tokens whose window has closed.
func (r *UserRepository) PurgeExpiredResetTokens(ctx context.Context, now int64) (int64, error) {
	res, err := r.q.exec(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		WHERE reset_token_hash IS NOT NULL AND reset_token_expires_at <= ?
	`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
