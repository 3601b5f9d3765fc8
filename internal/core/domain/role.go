package domain

// Role identifies what kind of user a session belongs to.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
	RoleDriver  Role = "driver"
)

// IsValid reports whether the role is known to the system.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleCashier, RoleKitchen, RoleDriver:
		return true
	}
	return false
}
