package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	"github.com/hpos/callcenter-backend/internal/core/services"
)

func TestAuthorizationService_Can(t *testing.T) {
	svc := services.NewAuthorizationService()

	tests := []struct {
		name       string
		role       domain.Role
		capability string
		want       bool
	}{
		{"admin can manage users", domain.RoleAdmin, services.CapUsersManage, true},
		{"admin can publish events", domain.RoleAdmin, services.CapEventsPublish, true},
		{"manager can assign orders", domain.RoleManager, services.CapOrdersAssign, true},
		{"manager cannot manage users", domain.RoleManager, services.CapUsersManage, false},
		{"agent can create orders", domain.RoleAgent, services.CapOrdersCreate, true},
		{"agent cannot assign orders", domain.RoleAgent, services.CapOrdersAssign, false},
		{"cashier can process payments", domain.RoleCashier, services.CapPaymentsProcess, true},
		{"cashier cannot create orders", domain.RoleCashier, services.CapOrdersCreate, false},
		{"kitchen can update order status", domain.RoleKitchen, services.CapOrdersUpdate, true},
		{"kitchen cannot publish events", domain.RoleKitchen, services.CapEventsPublish, false},
		{"driver can connect to realtime", domain.RoleDriver, services.CapRealtimeConnect, true},
		{"driver cannot touch customers", domain.RoleDriver, services.CapCustomersRead, false},
		{"unknown role has nothing", domain.Role("ghost"), services.CapRealtimeConnect, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Can(tt.role, tt.capability))
		})
	}
}

func TestAuthorizationService_Capabilities(t *testing.T) {
	svc := services.NewAuthorizationService()

	// Every known role can at least connect.
	roles := []domain.Role{
		domain.RoleAdmin, domain.RoleManager, domain.RoleAgent,
		domain.RoleCashier, domain.RoleKitchen, domain.RoleDriver,
	}
	for _, role := range roles {
		caps := svc.Capabilities(role)
		assert.NotEmpty(t, caps, "role %s", role)
		assert.Contains(t, caps, services.CapRealtimeConnect, "role %s", role)
	}

	assert.Empty(t, svc.Capabilities(domain.Role("ghost")))

	// Mutating the returned slice must not leak into the table.
	caps := svc.Capabilities(domain.RoleDriver)
	caps[0] = "everything:all"
	assert.NotContains(t, svc.Capabilities(domain.RoleDriver), "everything:all")
}
