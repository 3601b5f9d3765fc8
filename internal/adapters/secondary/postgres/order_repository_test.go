package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

func newOrderRepo(t *testing.T) ports.OrderRepository {
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	return NewOrderRepository(testPool)
}

func newPersistedOrder(t *testing.T, ctx context.Context, repo ports.OrderRepository, branchID string) *domain.Order {
	t.Helper()

	order, err := domain.NewOrder(domain.OrderParams{
		CustomerID: uuid.NewString(),
		BranchID:   branchID,
		AgentID:    uuid.NewString(),
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: "prod-pizza", Name: "Quattro Formaggi", Quantity: 2, UnitPrice: 11.00},
		},
		TaxRate: 0.08,
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	return created
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepo(t)

	branchID := "branch-" + uuid.NewString()
	created := newPersistedOrder(t, ctx, repo, branchID)
	require.NotEmpty(t, created.ID)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, branchID, found.BranchID)
	assert.Equal(t, domain.OrderPending, found.Status)
	assert.Equal(t, domain.PaymentPending, found.PaymentStatus)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Quattro Formaggi", found.Items[0].Name)
	assert.InDelta(t, 22.00, found.Subtotal, 0.001)
	assert.InDelta(t, 23.76, found.Total, 0.001)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepo(t)

	_, err := repo.GetByID(ctx, uuid.NewString())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestOrderRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepo(t)

	created := newPersistedOrder(t, ctx, repo, "branch-"+uuid.NewString())

	require.NoError(t, created.UpdateStatus(domain.OrderConfirmed))
	require.NoError(t, created.RecordPayment(domain.PaymentPaid))

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, updated.Status)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, found.Status)
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepo(t)

	branchID := "branch-" + uuid.NewString()
	newPersistedOrder(t, ctx, repo, branchID)
	second := newPersistedOrder(t, ctx, repo, branchID)
	newPersistedOrder(t, ctx, repo, "branch-"+uuid.NewString())

	require.NoError(t, second.UpdateStatus(domain.OrderConfirmed))
	_, err := repo.Update(ctx, second)
	require.NoError(t, err)

	orders, err := repo.List(ctx, ports.OrderFilter{BranchID: branchID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, branchID, order.BranchID)
	}

	confirmed := domain.OrderConfirmed
	filtered, err := repo.List(ctx, ports.OrderFilter{BranchID: branchID, Status: &confirmed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)
}
