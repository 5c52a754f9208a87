package rbac

// Role names. Keep these stable; they match profiles.role in the database.
const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Known reports whether role is one this service issues or accepts.
func Known(role string) bool {
	switch role {
	case RoleUser, RoleOwner, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports the platform-wide administrator role.
func IsAdmin(role string) bool { return role == RoleAdmin }
