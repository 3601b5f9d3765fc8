package domain

import (
	"time"

	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

// OrderStatus represents the possible states of an order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

// IsValid reports whether the status is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady,
		OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// orderFlow defines the forward progression of an order. cancelled and
// refunded are reachable from any non-terminal state and are handled in
// CanTransitionTo directly.
var orderFlow = map[OrderStatus]OrderStatus{
	OrderPending:        OrderConfirmed,
	OrderConfirmed:      OrderPreparing,
	OrderPreparing:      OrderReady,
	OrderReady:          OrderOutForDelivery,
	OrderOutForDelivery: OrderDelivered,
}

// CanTransitionTo reports whether moving from s to next is a legal
// workflow step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderCancelled || next == OrderRefunded {
		return true
	}
	return orderFlow[s] == next
}

// PaymentStatus represents the payment state of an order.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// IsValid reports whether the status is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// FulfillmentStatus represents the kitchen/delivery progress of an order.
type FulfillmentStatus string

const (
	FulfillmentPending        FulfillmentStatus = "pending"
	FulfillmentPreparing      FulfillmentStatus = "preparing"
	FulfillmentReady          FulfillmentStatus = "ready"
	FulfillmentOutForDelivery FulfillmentStatus = "out_for_delivery"
	FulfillmentDelivered      FulfillmentStatus = "delivered"
)

// OrderItem is a line item on an order.
type OrderItem struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Notes      string  `json:"notes,omitempty"`
}

// Order is the core domain entity projected across agent consoles.
type Order struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customerId"`
	BranchID          string            `json:"branchId"`
	AgentID           string            `json:"agentId,omitempty"`
	Items             []OrderItem       `json:"items"`
	Status            OrderStatus       `json:"status"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	Subtotal          float64           `json:"subtotal"`
	Tax               float64           `json:"tax"`
	Discount          float64           `json:"discount"`
	Total             float64           `json:"total"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// OrderParams holds the input for creating a new order.
type OrderParams struct {
	CustomerID string
	BranchID   string
	AgentID    string
	Items      []OrderItem
	Discount   float64
	TaxRate    float64
	Notes      string
}

// NewOrder is a factory function to create a valid new order. Totals are
// derived from the line items.
func NewOrder(params OrderParams) (*Order, error) {
	errs := apperrors.NewValidationErrors()

	if params.CustomerID == "" {
		errs.Add("customerId", "Customer ID is required")
	}
	if params.BranchID == "" {
		errs.Add("branchId", "Branch ID is required")
	}
	if len(params.Items) == 0 {
		errs.Add("items", "Order must contain at least one item")
	}
	for _, item := range params.Items {
		if item.Quantity <= 0 {
			errs.Add("items", "Item quantity must be positive")
			break
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}

	var subtotal float64
	for i := range params.Items {
		item := &params.Items[i]
		if item.TotalPrice == 0 {
			item.TotalPrice = item.UnitPrice * float64(item.Quantity)
		}
		subtotal += item.TotalPrice
	}

	tax := subtotal * params.TaxRate
	now := time.Now().UTC()

	return &Order{
		CustomerID:        params.CustomerID,
		BranchID:          params.BranchID,
		AgentID:           params.AgentID,
		Items:             params.Items,
		Status:            OrderPending,
		PaymentStatus:     PaymentPending,
		FulfillmentStatus: FulfillmentPending,
		Subtotal:          subtotal,
		Tax:               tax,
		Discount:          params.Discount,
		Total:             subtotal + tax - params.Discount,
		Notes:             params.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// UpdateStatus changes the order's status, enforcing the workflow on the
// write path. Projections apply looser, timestamp-driven rules.
func (o *Order) UpdateStatus(next OrderStatus) error {
	if !next.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if !o.Status.CanTransitionTo(next) {
		return apperrors.ErrInvalidStatusTransition
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Assign sets or changes the agent handling the order.
func (o *Order) Assign(agentID string) error {
	if o.Status.IsTerminal() {
		return apperrors.ErrOrderClosed
	}
	o.AgentID = agentID
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordPayment applies a payment outcome to the order.
func (o *Order) RecordPayment(status PaymentStatus) error {
	if !status.IsValid() {
		return apperrors.ErrInvalidPaymentStatus
	}
	o.PaymentStatus = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// NewerThan reports whether o carries a strictly later update than other.
// Equal timestamps do NOT supersede: conflict resolution keeps the copy
// already held (last-write-wins with a keep-existing tie-break).
func (o *Order) NewerThan(other *Order) bool {
	return o.UpdatedAt.After(other.UpdatedAt)
}

// IsAssignedTo reports whether the order is handled by the given agent.
func (o *Order) IsAssignedTo(agentID string) bool {
	return agentID != "" && o.AgentID == agentID
}
