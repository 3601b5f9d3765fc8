package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// CustomerRepository is the secondary adapter for customer persistence.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

// NewCustomerRepository creates a new customer repository.
func NewCustomerRepository(pool *pgxpool.Pool) ports.CustomerRepository {
	return &CustomerRepository{pool: pool}
}

const customerColumns = `id, branch_id, name, phone, email, is_vip, is_blacklisted,
	total_orders, total_spent, created_at, updated_at`

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + customerColumns

	row := r.pool.QueryRow(ctx, query,
		customer.ID,
		customer.BranchID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.IsVIP,
		customer.IsBlacklisted,
		customer.TotalOrders,
		customer.TotalSpent,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	return scanCustomer(row)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, branchID, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE branch_id = $1 AND phone = $2`

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, branchID, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	query := `
		UPDATE customers
		SET name = $2,
			phone = $3,
			email = $4,
			is_vip = $5,
			is_blacklisted = $6,
			total_orders = $7,
			total_spent = $8,
			updated_at = $9
		WHERE id = $1
		RETURNING ` + customerColumns

	row := r.pool.QueryRow(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.IsVIP,
		customer.IsBlacklisted,
		customer.TotalOrders,
		customer.TotalSpent,
		customer.UpdatedAt,
	)

	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCustomerNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *CustomerRepository) List(ctx context.Context, branchID string, limit, offset int) ([]*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE branch_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, branchID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var customer domain.Customer

	err := row.Scan(
		&customer.ID,
		&customer.BranchID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.IsVIP,
		&customer.IsBlacklisted,
		&customer.TotalOrders,
		&customer.TotalSpent,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
