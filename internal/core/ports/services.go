package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/hpos/callcenter-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthorizationService answers capability questions for a role. The
// capability map is static; there is no per-user grant storage.
type AuthorizationService interface {
	Can(role domain.Role, capability string) bool
	Capabilities(role domain.Role) []string
}

// EventBroadcaster is the port the services publish domain events
// through. Delivery is fire-and-forget: a slow or absent consumer never
// fails the operation that emitted the event.
type EventBroadcaster interface {
	Publish(event domain.Event)
}

// Notifier defines the port for pushing notifications to a single user.
type Notifier interface {
	Notify(ctx context.Context, userID string, notification domain.NotificationMessage)
}

// CreateOrderParams defines the input for creating a new order.
type CreateOrderParams struct {
	Actor      Actor
	CustomerID string
	Items      []domain.OrderItem
	Discount   float64
	Notes      string
}

// UpdateOrderStatusParams defines the input for changing an order's status.
type UpdateOrderStatusParams struct {
	Actor   Actor
	OrderID string
	Status  domain.OrderStatus
}

// AssignOrderParams defines the input for assigning an order to an agent.
type AssignOrderParams struct {
	Actor   Actor
	OrderID string
	AgentID string
}

// ProcessPaymentParams defines the input for recording a payment outcome.
type ProcessPaymentParams struct {
	Actor   Actor
	OrderID string
	Amount  float64
	Method  string
	Status  domain.PaymentStatus
}

// ListOrdersParams defines the input for listing orders.
type ListOrdersParams struct {
	Actor  Actor
	Status *domain.OrderStatus
	Limit  int
	Offset int
}

// Actor identifies who is performing an operation and in which branch.
type Actor struct {
	UserID   uuid.UUID
	BranchID string
	Role     domain.Role
}

// OrderService defines the core business operations for managing orders.
type OrderService interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*domain.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, params UpdateOrderStatusParams) (*domain.Order, error)
	AssignOrder(ctx context.Context, params AssignOrderParams) (*domain.Order, error)
	ProcessPayment(ctx context.Context, params ProcessPaymentParams) (*domain.Order, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]*domain.Order, error)
	Shutdown()
}

// CreateCustomerParams defines the input for registering a customer.
type CreateCustomerParams struct {
	Actor Actor
	Name  string
	Phone string
	Email string
}

// UpdateCustomerParams defines the input for updating a customer record.
type UpdateCustomerParams struct {
	Actor         Actor
	CustomerID    string
	Name          *string
	Phone         *string
	Email         *string
	IsVIP         *bool
	IsBlacklisted *bool
}

// CustomerService defines the business operations for customer records.
type CustomerService interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*domain.Customer, error)
	GetCustomer(ctx context.Context, actor Actor, customerID string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, params UpdateCustomerParams) (*domain.Customer, error)
	ListCustomers(ctx context.Context, actor Actor, limit, offset int) ([]*domain.Customer, error)
	Shutdown()
}
