package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts and appear in DASHBOARD_USERS.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// IsOwner reports whether role bypasses all role checks.
func IsOwner(role string) bool { return role == RoleOwner }

func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleStaff:
		return true
	}
	return false
}
