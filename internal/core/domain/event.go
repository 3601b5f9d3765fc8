package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Pre-defined errors for event validation at ingress.
var (
	ErrBranchRequired   = errors.New("event branch id is required")
	ErrUnknownEventType = errors.New("unknown event type")
)

// EventType defines the type of real-time event.
type EventType string

// Routable domain events. Every event carries the branch it must be
// delivered to; the broadcast server rejects anything else at ingress.
const (
	EventOrderCreated     EventType = "order_created"
	EventOrderUpdated     EventType = "order_updated"
	EventCustomerUpdated  EventType = "customer_updated"
	EventPaymentProcessed EventType = "payment_processed"
	EventInventoryUpdated EventType = "inventory_updated"
	EventCallIncoming     EventType = "call_incoming"
	EventCallAnswered     EventType = "call_answered"
	EventCallEnded        EventType = "call_ended"
	EventNotification     EventType = "notification"
)

// Connection-control events. These are exchanged between the broadcast
// server and a single connection and are never routed to a channel.
const (
	EventAuthenticated EventType = "authenticated"
	EventAuthError     EventType = "auth_error"
)

// IsRoutable reports whether the type is a domain event that may be
// published to a branch channel.
func (t EventType) IsRoutable() bool {
	switch t {
	case EventOrderCreated, EventOrderUpdated, EventCustomerUpdated,
		EventPaymentProcessed, EventInventoryUpdated,
		EventCallIncoming, EventCallAnswered, EventCallEnded,
		EventNotification:
		return true
	}
	return false
}

// Event is the envelope sent over WebSocket.
type Event struct {
	Type      EventType       `json:"type"`
	BranchID  string          `json:"branchId"` // Used for routing to branch channels
	EntityID  string          `json:"entityId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// NewEvent builds an event envelope, marshaling the payload and stamping
// the emission time.
func NewEvent(eventType EventType, branchID, entityID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	event := Event{
		Type:      eventType,
		BranchID:  branchID,
		EntityID:  entityID,
		Payload:   raw,
		EmittedAt: time.Now().UTC(),
	}

	return event, event.Validate()
}

// Validate checks the envelope is routable: a known domain event type and
// a resolvable branch.
func (e *Event) Validate() error {
	if !e.Type.IsRoutable() {
		return ErrUnknownEventType
	}
	if e.BranchID == "" {
		return ErrBranchRequired
	}
	return nil
}

// PaymentInfo is the payload of a payment_processed event.
type PaymentInfo struct {
	OrderID string        `json:"orderId"`
	Amount  float64       `json:"amount"`
	Method  string        `json:"method"`
	Status  PaymentStatus `json:"status"`
}

// InventoryChange is the payload of an inventory_updated event.
type InventoryChange struct {
	ProductID        string `json:"productId"`
	Quantity         int    `json:"quantity"`
	PreviousQuantity int    `json:"previousQuantity"`
}

// NotificationMessage is the payload of a server-originated notification event.
type NotificationMessage struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// CallDelta is the payload of call_answered/call_ended events. The wire
// carries either a full Call record or a sparse delta; both shapes decode
// into this struct.
type CallDelta struct {
	ID         string     `json:"id"`
	CallID     string     `json:"callId"`
	CustomerID string     `json:"customerId,omitempty"`
	OrderID    string     `json:"orderId,omitempty"`
	AgentID    string     `json:"agentId,omitempty"`
	Status     CallStatus `json:"status,omitempty"`
}

// TargetCallID resolves the call identifier regardless of wire shape.
func (d CallDelta) TargetCallID() string {
	if d.CallID != "" {
		return d.CallID
	}
	return d.ID
}
