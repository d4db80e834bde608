package userdata

import "strings"

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ParseRole accepts a role name in any case. An empty name defaults to EDITOR.
func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case "":
		return RoleEditor, true
	case RoleOwner, RoleEditor, RoleViewer:
		return role, true
	default:
		return "", false
	}
}
