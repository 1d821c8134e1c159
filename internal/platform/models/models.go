package models

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Organization struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Status      string  `json:"status"`
	OwnerUserID *string `json:"owner_user_id,omitempty"`
	PlanTier    string  `json:"plan_tier"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (o *Organization) IsActive() bool {
	return o.Status == StatusActive
}

type Role struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	IsSystemRole   bool   `json:"is_system_role"`
	CreatedAt      int64  `json:"created_at"`
}

// User timestamps are unix milliseconds. Credential material is never
// serialized.
type User struct {
	ID                  string  `json:"id"`
	OrganizationID      string  `json:"organization_id"`
	RoleID              *string `json:"role_id,omitempty"`
	FullName            string  `json:"full_name"`
	Email               string  `json:"email"`
	Status              string  `json:"status"`
	PasswordHash        *string `json:"-"`
	TempPasswordHash    *string `json:"-"`
	MustChangePassword  bool    `json:"must_change_password"`
	PasswordExpiresAt   *int64  `json:"password_expires_at,omitempty"`
	ResetTokenHash      *string `json:"-"`
	ResetTokenExpiresAt *int64  `json:"-"`
	LastLoginAt         *int64  `json:"last_login_at,omitempty"`
	CreatedAt           int64   `json:"created_at"`
	UpdatedAt           int64   `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

type UserRole struct {
	UserID    string `json:"user_id"`
	RoleID    string `json:"role_id"`
	CreatedAt int64  `json:"created_at"`
}

type Session struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	ExpiresAt      int64  `json:"expires_at"`
	RevokedAt      *int64 `json:"revoked_at,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// Valid reports whether the session may still authenticate requests at now
// (unix milliseconds).
func (s *Session) Valid(now int64) bool {
	return s.RevokedAt == nil && s.ExpiresAt > now
}

type AuditLog struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Action         string `json:"action"`
	Outcome        string `json:"outcome"`
	Metadata       string `json:"metadata"`
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	CreatedAt      int64  `json:"created_at"`
}
