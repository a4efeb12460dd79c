// internal/app/system/authz/roles.go
package authz

import "strings"

// Role is an access level. It is the only authorization axis: there are no
// per-document ACLs and no owner overrides.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdmin, RoleEditor, RoleViewer}

// RoleNames returns Roles as strings, for schema enums and validation.
func RoleNames() []string {
	out := make([]string, len(Roles))
	for i, r := range Roles {
		out[i] = string(r)
	}
	return out
}

// ParseRole normalizes a stored or submitted role. "user" is accepted as an
// older name for viewer. ok is false for anything else.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "editor":
		return RoleEditor, true
	case "viewer", "user":
		return RoleViewer, true
	}
	return "", false
}

// RoleSet is the set of roles an operation requires.
type RoleSet map[Role]struct{}

// SetOf builds a RoleSet.
func SetOf(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports set membership.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Role sets declared by operations.
var (
	Admins  = SetOf(RoleAdmin)
	Editors = SetOf(RoleAdmin, RoleEditor)
	Anyone  = SetOf(RoleAdmin, RoleEditor, RoleViewer)
)
