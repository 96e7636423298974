package rbac

import "strings"

// Role names as issued by the CRM backend.
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
)

func IsAdmin(role string) bool { return strings.EqualFold(role, RoleAdmin) }

// Allows reports whether role may use a route open to allowed. Role names
// compare case-insensitively and admin is allowed everywhere.
func Allows(role string, allowed ...string) bool {
	if role == "" {
		return false
	}
	if IsAdmin(role) {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(role, a) {
			return true
		}
	}
	return false
}
