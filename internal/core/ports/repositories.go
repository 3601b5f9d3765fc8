package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/hpos/callcenter-backend/internal/core/domain"
)

// UserRepository defines the persistence port for operator accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// OrderFilter narrows order listings. Zero values mean "no constraint".
type OrderFilter struct {
	BranchID string
	Status   *domain.OrderStatus
	AgentID  string
	Limit    int
	Offset   int
}

// OrderRepository defines the persistence port for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
}

// CustomerRepository defines the persistence port for customer records.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByPhone(ctx context.Context, branchID, phone string) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	List(ctx context.Context, branchID string, limit, offset int) ([]*domain.Customer, error)
}
