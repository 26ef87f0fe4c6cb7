// Package access maps the caller's role to what the dashboards let them do.
// The role is supplied explicitly by the caller on every request; this is
// display gating only and not an authorization boundary.
package access

import "strings"

// Role is the current user's role as reported by the front end
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleProduction Role = "production"
	RoleViewer     Role = "viewer"
)

// ParseRole normalizes a role string; unknown or empty roles become viewer
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleManager, RoleProduction:
		return r
	default:
		return RoleViewer
	}
}

// Permissions lists the actions offered to a role
type Permissions struct {
	CanEdit   bool `json:"can_edit"`
	CanExport bool `json:"can_export"`
}

// For returns the permissions of a role
func For(r Role) Permissions {
	switch r {
	case RoleAdmin, RoleManager:
		return Permissions{CanEdit: true, CanExport: true}
	case RoleProduction:
		return Permissions{CanEdit: true}
	default:
		return Permissions{}
	}
}
