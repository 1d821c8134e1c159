package accounts

import (
	"strings"
	"unicode"
)

// RoleKind is the closed set of roles the application routes on. Kinds are
// ordered by precedence: when a user holds several roles the highest wins.
type RoleKind int

const (
	RoleOther RoleKind = iota
	RoleDev
	RoleQA
	RoleProjectManager
	RoleDevLead
	RoleQALead
	RoleAdmin
	RoleCompanyAdmin
	RoleSuperAdmin
)

const (
	DestinationSetPassword          = "/set-password"
	DestinationLogin                = "/login"
	DestinationOrganizationOverview = "/organization/overview"
	DestinationCompanyAdmin         = "/dashboard/company-admin"
	DestinationProjects             = "/projects"
	DestinationMyWork               = "/my-work"
)

var roleKinds = map[string]RoleKind{
	"super-admin":     RoleSuperAdmin,
	"company-admin":   RoleCompanyAdmin,
	"admin":           RoleAdmin,
	"qa-lead":         RoleQALead,
	"dev-lead":        RoleDevLead,
	"project-manager": RoleProjectManager,
	"qa":              RoleQA,
	"dev":             RoleDev,
	"developer":       RoleDev,
}

// Role is a role name resolved at the data boundary.
type Role struct {
	Kind RoleKind
	Name string
}

// NormalizeRoleName lowercases a role name and joins its words with single
// hyphens, so "Super admin", "super_admin" and " SUPER-ADMIN " are equal.
func NormalizeRoleName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	return strings.Join(fields, "-")
}

func ParseRole(name string) Role {
	normalized := NormalizeRoleName(name)
	return Role{Kind: roleKinds[normalized], Name: normalized}
}

func (r Role) IsAdmin() bool {
	return r.Kind == RoleSuperAdmin || r.Kind == RoleCompanyAdmin || r.Kind == RoleAdmin
}

// Destination maps a role to the area the user lands in after sign-in.
func (r Role) Destination() string {
	switch r.Kind {
	case RoleSuperAdmin:
		return DestinationOrganizationOverview
	case RoleCompanyAdmin, RoleAdmin:
		return DestinationCompanyAdmin
	case RoleQALead, RoleDevLead:
		return DestinationProjects
	default:
		return DestinationMyWork
	}
}

// PrimaryRole picks the highest-precedence role among names, ignoring blanks.
// ok is false when no usable name remains.
func PrimaryRole(names []string) (role Role, ok bool) {
	for _, name := range names {
		r := ParseRole(name)
		if r.Name == "" {
			continue
		}
		if !ok || r.Kind > role.Kind {
			role, ok = r, true
		}
	}
	return role, ok
}
