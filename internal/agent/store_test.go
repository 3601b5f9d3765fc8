package agent

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpos/callcenter-backend/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func orderEvent(t *testing.T, eventType domain.EventType, order domain.Order) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, "branch-1", order.ID, order)
	require.NoError(t, err)
	return event
}

func storedOrder(id string, status domain.OrderStatus, updatedAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		CustomerID: "cust-1",
		BranchID:   "branch-1",
		Status:     status,
		CreatedAt:  updatedAt.Add(-time.Minute),
		UpdatedAt:  updatedAt,
	}
}

func TestStore_OrderMerge(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	t.Run("applies created then updated", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, storedOrder("O1", domain.OrderPending, t1)))
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, storedOrder("O1", domain.OrderConfirmed, t2)))

		order, ok := store.Order("O1")
		require.True(t, ok)
		assert.Equal(t, domain.OrderConfirmed, order.Status)
	})

	t.Run("merge is commutative", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, storedOrder("O1", domain.OrderConfirmed, t2)))
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, storedOrder("O1", domain.OrderPending, t1)))

		order, ok := store.Order("O1")
		require.True(t, ok)
		assert.Equal(t, domain.OrderConfirmed, order.Status)
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		store := newTestStore(t)
		event := orderEvent(t, domain.EventOrderCreated, storedOrder("O1", domain.OrderPending, t1))
		store.ApplyEvent(event)
		store.ApplyEvent(event)

		assert.Len(t, store.FilteredOrders(OrderFilters{}), 1)
	})

	t.Run("equal timestamps keep the existing copy", func(t *testing.T) {
		store := newTestStore(t)
		first := storedOrder("O1", domain.OrderPending, t1)
		first.Notes = "first"
		second := storedOrder("O1", domain.OrderConfirmed, t1)
		second.Notes = "second"

		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, first))
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, second))

		order, ok := store.Order("O1")
		require.True(t, ok)
		assert.Equal(t, "first", order.Notes)
		assert.Equal(t, domain.OrderPending, order.Status)
	})

	t.Run("newer timestamp wins over transition legality", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, storedOrder("O1", domain.OrderDelivered, t1)))
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, storedOrder("O1", domain.OrderPreparing, t2)))

		order, ok := store.Order("O1")
		require.True(t, ok)
		assert.Equal(t, domain.OrderPreparing, order.Status)
	})

	t.Run("stale update is silently discarded", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, storedOrder("O1", domain.OrderConfirmed, t2)))
		store.ApplyEvent(orderEvent(t, domain.EventOrderUpdated, storedOrder("O1", domain.OrderPending, t1)))

		order, ok := store.Order("O1")
		require.True(t, ok)
		assert.Equal(t, domain.OrderConfirmed, order.Status)
	})
}

func TestStore_CallLifecycle(t *testing.T) {
	callEvent := func(t *testing.T, eventType domain.EventType, payload any) domain.Event {
		event, err := domain.NewEvent(eventType, "branch-1", "C1", payload)
		require.NoError(t, err)
		return event
	}

	incoming := domain.Call{ID: "C1", CustomerID: "cust-1", Status: domain.CallIncoming, CreatedAt: time.Now().UTC()}

	t.Run("incoming answered ended", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallIncoming, incoming))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1", AgentID: "agent-7"}))

		call, ok := store.Call("C1")
		require.True(t, ok)
		assert.Equal(t, domain.CallConnected, call.Status)
		assert.Equal(t, "agent-7", call.AgentID)

		store.ApplyEvent(callEvent(t, domain.EventCallEnded, domain.CallDelta{CallID: "C1"}))
		call, _ = store.Call("C1")
		assert.Equal(t, domain.CallEnded, call.Status)
	})

	t.Run("answered after ended is rejected", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallIncoming, incoming))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1"}))
		store.ApplyEvent(callEvent(t, domain.EventCallEnded, domain.CallDelta{CallID: "C1"}))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1"}))

		call, ok := store.Call("C1")
		require.True(t, ok)
		assert.Equal(t, domain.CallEnded, call.Status)
	})

	t.Run("never answered call goes missed", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallIncoming, incoming))
		store.ApplyEvent(callEvent(t, domain.EventCallEnded, domain.CallDelta{CallID: "C1", Status: domain.CallMissed}))

		call, ok := store.Call("C1")
		require.True(t, ok)
		assert.Equal(t, domain.CallMissed, call.Status)
	})

	t.Run("hold and resume", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallIncoming, incoming))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1"}))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1", Status: domain.CallOnHold}))
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "C1", Status: domain.CallConnected}))

		call, ok := store.Call("C1")
		require.True(t, ok)
		assert.Equal(t, domain.CallConnected, call.Status)
	})

	t.Run("delta for unknown call is ignored", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallAnswered, domain.CallDelta{CallID: "ghost"}))

		_, ok := store.Call("ghost")
		assert.False(t, ok)
	})

	t.Run("incoming call synthesizes a notification", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(callEvent(t, domain.EventCallIncoming, incoming))

		assert.Equal(t, 1, store.UnreadCount())
		notifications := store.Notifications()
		require.Len(t, notifications, 1)
		assert.Equal(t, domain.NotifyCustomerCall, notifications[0].Type)
	})
}

func TestStore_PaymentPatchesOrder(t *testing.T) {
	store := newTestStore(t)
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, storedOrder("O1", domain.OrderConfirmed, t1)))

	payment := domain.PaymentInfo{OrderID: "O1", Amount: 25, Method: "card", Status: domain.PaymentPaid}
	event, err := domain.NewEvent(domain.EventPaymentProcessed, "branch-1", "O1", payment)
	require.NoError(t, err)
	store.ApplyEvent(event)

	order, ok := store.Order("O1")
	require.True(t, ok)
	assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotifyPaymentReceived, notifications[0].Type)
}

func TestStore_InventoryNotification(t *testing.T) {
	store := newTestStore(t)

	drop := domain.InventoryChange{ProductID: "prod-1", Quantity: 2, PreviousQuantity: 10}
	event, err := domain.NewEvent(domain.EventInventoryUpdated, "branch-1", "prod-1", drop)
	require.NoError(t, err)
	store.ApplyEvent(event)

	restock := domain.InventoryChange{ProductID: "prod-1", Quantity: 50, PreviousQuantity: 2}
	event, err = domain.NewEvent(domain.EventInventoryUpdated, "branch-1", "prod-1", restock)
	require.NoError(t, err)
	store.ApplyEvent(event)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotifyInventoryLow, notifications[0].Type)
}

func TestStore_Notifications(t *testing.T) {
	notificationEvent := func(t *testing.T, id string) domain.Event {
		event, err := domain.NewEvent(domain.EventNotification, "branch-1", id, domain.NotificationMessage{
			ID:    id,
			Type:  domain.NotifySystemAlert,
			Title: "Shift change",
		})
		require.NoError(t, err)
		return event
	}

	t.Run("appends unread", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(notificationEvent(t, "n-1"))

		assert.Equal(t, 1, store.UnreadCount())
	})

	t.Run("duplicate id is not appended twice", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(notificationEvent(t, "n-1"))
		store.ApplyEvent(notificationEvent(t, "n-1"))

		assert.Len(t, store.Notifications(), 1)
	})

	t.Run("mark read is idempotent and local", func(t *testing.T) {
		store := newTestStore(t)
		store.ApplyEvent(notificationEvent(t, "n-1"))
		store.ApplyEvent(notificationEvent(t, "n-2"))

		store.MarkNotificationRead("n-1")
		store.MarkNotificationRead("n-1")
		store.MarkNotificationRead("unknown")

		assert.Equal(t, 1, store.UnreadCount())
	})
}

func TestStore_FilteredOrders(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedStore := func(t *testing.T) *Store {
		store := newTestStore(t)
		pending := storedOrder("O1", domain.OrderPending, base.Add(time.Minute))
		pending.AgentID = "agent-1"
		confirmed := storedOrder("O2", domain.OrderConfirmed, base.Add(2*time.Minute))
		confirmed.CustomerID = "cust-queryme"
		ready := storedOrder("O3", domain.OrderReady, base.Add(3*time.Minute))

		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, pending))
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, confirmed))
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, ready))
		return store
	}

	t.Run("no filters returns all ordered by created desc", func(t *testing.T) {
		store := seedStore(t)
		orders := store.FilteredOrders(OrderFilters{})

		require.Len(t, orders, 3)
		assert.Equal(t, "O3", orders[0].ID)
		assert.Equal(t, "O2", orders[1].ID)
		assert.Equal(t, "O1", orders[2].ID)
	})

	t.Run("status set filter", func(t *testing.T) {
		store := seedStore(t)
		orders := store.FilteredOrders(OrderFilters{
			Statuses: []domain.OrderStatus{domain.OrderPending, domain.OrderReady},
		})

		require.Len(t, orders, 2)
		assert.Equal(t, "O3", orders[0].ID)
		assert.Equal(t, "O1", orders[1].ID)
	})

	t.Run("free text matches customer id", func(t *testing.T) {
		store := seedStore(t)
		orders := store.FilteredOrders(OrderFilters{Query: "queryme"})

		require.Len(t, orders, 1)
		assert.Equal(t, "O2", orders[0].ID)
	})

	t.Run("agent filter", func(t *testing.T) {
		store := seedStore(t)
		orders := store.FilteredOrders(OrderFilters{AgentID: "agent-1"})

		require.Len(t, orders, 1)
		assert.Equal(t, "O1", orders[0].ID)
	})

	t.Run("equal timestamps break ties on id", func(t *testing.T) {
		store := newTestStore(t)
		a := storedOrder("A", domain.OrderPending, base)
		b := storedOrder("B", domain.OrderPending, base)
		a.CreatedAt = base
		b.CreatedAt = base
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, a))
		store.ApplyEvent(orderEvent(t, domain.EventOrderCreated, b))

		orders := store.FilteredOrders(OrderFilters{})
		require.Len(t, orders, 2)
		assert.Equal(t, "A", orders[0].ID)
		assert.Equal(t, "B", orders[1].ID)
	})

	t.Run("is pure", func(t *testing.T) {
		store := seedStore(t)
		first := store.FilteredOrders(OrderFilters{Query: "O"})
		second := store.FilteredOrders(OrderFilters{Query: "O"})

		assert.Equal(t, first, second)
		assert.Len(t, store.FilteredOrders(OrderFilters{}), 3)
	})
}
