package auth

// Role is a member's permission level inside an organization. Roles are
// ordered: admin implies operator, operator implies viewer.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole reports whether value names a known role.
func NormalizeRole(value string) (Role, bool) {
	role := Role(value)
	_, ok := roleRanks[role]
	if !ok {
		return "", false
	}
	return role, true
}

// RoleAtLeast reports whether role grants at least the required level.
// Unknown roles rank below viewer and never satisfy a requirement.
func RoleAtLeast(role Role, required Role) bool {
	return roleRanks[role] >= roleRanks[required]
}
