package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// OrderRepository is the secondary adapter for order persistence. Line items
// are stored as a JSONB document alongside the order row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository.
func NewOrderRepository(pool *pgxpool.Pool) ports.OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, customer_id, branch_id, agent_id, items, status, payment_status,
	fulfillment_status, subtotal, tax, discount, total, notes, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + orderColumns

	row := r.pool.QueryRow(ctx, query,
		order.ID,
		order.CustomerID,
		order.BranchID,
		order.AgentID,
		items,
		string(order.Status),
		string(order.PaymentStatus),
		string(order.FulfillmentStatus),
		order.Subtotal,
		order.Tax,
		order.Discount,
		order.Total,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)

	return scanOrder(row)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}

	query := `
		UPDATE orders
		SET agent_id = $2,
			items = $3,
			status = $4,
			payment_status = $5,
			fulfillment_status = $6,
			notes = $7,
			updated_at = $8
		WHERE id = $1
		RETURNING ` + orderColumns

	row := r.pool.QueryRow(ctx, query,
		order.ID,
		order.AgentID,
		items,
		string(order.Status),
		string(order.PaymentStatus),
		string(order.FulfillmentStatus),
		order.Notes,
		order.UpdatedAt,
	)

	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE branch_id = $1`
	args := []any{filter.BranchID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order             domain.Order
		items             []byte
		status            string
		paymentStatus     string
		fulfillmentStatus string
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.BranchID,
		&order.AgentID,
		&items,
		&status,
		&paymentStatus,
		&fulfillmentStatus,
		&order.Subtotal,
		&order.Tax,
		&order.Discount,
		&order.Total,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("unmarshaling order items: %w", err)
		}
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.FulfillmentStatus = domain.FulfillmentStatus(fulfillmentStatus)
	return &order, nil
}
