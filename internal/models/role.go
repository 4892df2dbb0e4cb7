package models

import (
	"strings"

	"github.com/google/uuid"
)

// SuperRoleName is the role name granting cross-tenant administration.
const SuperRoleName = "super_admin"

// Role is a named group. A user's primary role and their group memberships
// share the same identifier space, so a RoleID is also a group ID.
type Role struct {
	RoleID uuid.UUID // UUIDv7
	Name   string
}

// IsSuperRole reports whether the role is the super administrator role.
func (r *Role) IsSuperRole() bool {
	return IsSuperRoleName(r.Name)
}

// IsSuperRoleName reports whether name identifies the super administrator role.
func IsSuperRoleName(name string) bool {
	return strings.ToLower(name) == SuperRoleName
}
