package services

import (
	"github.com/hpos/callcenter-backend/internal/core/domain"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// Capability names checked by services and the realtime gateway.
const (
	CapRealtimeConnect = "realtime:connect"
	CapEventsPublish   = "events:publish"
	CapOrdersCreate    = "orders:create"
	CapOrdersRead      = "orders:read"
	CapOrdersUpdate    = "orders:update:status"
	CapOrdersAssign    = "orders:assign"
	CapPaymentsProcess = "payments:process"
	CapCustomersRead   = "customers:read"
	CapCustomersWrite  = "customers:write"
	CapUsersManage     = "users:manage"
)

// rolePermissions maps each role to its capability set. The mapping is
// fixed at compile time; changing access rules is a deploy.
var rolePermissions = map[domain.Role][]string{
	domain.RoleAdmin: {
		CapRealtimeConnect, CapEventsPublish,
		CapOrdersCreate, CapOrdersRead, CapOrdersUpdate, CapOrdersAssign,
		CapPaymentsProcess, CapCustomersRead, CapCustomersWrite,
		CapUsersManage,
	},
	domain.RoleManager: {
		CapRealtimeConnect, CapEventsPublish,
		CapOrdersCreate, CapOrdersRead, CapOrdersUpdate, CapOrdersAssign,
		CapPaymentsProcess, CapCustomersRead, CapCustomersWrite,
	},
	domain.RoleAgent: {
		CapRealtimeConnect, CapEventsPublish,
		CapOrdersCreate, CapOrdersRead, CapOrdersUpdate,
		CapCustomersRead, CapCustomersWrite,
	},
	domain.RoleCashier: {
		CapRealtimeConnect, CapEventsPublish,
		CapOrdersRead, CapPaymentsProcess, CapCustomersRead,
	},
	domain.RoleKitchen: {
		CapRealtimeConnect,
		CapOrdersRead, CapOrdersUpdate,
	},
	domain.RoleDriver: {
		CapRealtimeConnect,
		CapOrdersRead, CapOrdersUpdate,
	},
}

// AuthorizationService answers capability checks from the static
// role-permission table.
type AuthorizationService struct{}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService() ports.AuthorizationService {
	return &AuthorizationService{}
}

// Can checks if a role has a specific capability. Unknown roles have no
// capabilities.
func (s *AuthorizationService) Can(role domain.Role, capability string) bool {
	for _, c := range rolePermissions[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities returns all capabilities for a role.
func (s *AuthorizationService) Capabilities(role domain.Role) []string {
	caps := rolePermissions[role]
	if caps == nil {
		return []string{}
	}
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}
