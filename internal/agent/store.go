package agent

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hpos/callcenter-backend/internal/core/domain"
)

// Store is the per-agent projection of branch state. It is owned by a single
// execution context (the console's UI loop); ApplyEvent and all reads must be
// called from that context, so the store carries no internal locking.
//
// Events may arrive in any order and more than once. Every handler is
// idempotent and order-tolerant: orders merge by last-write-wins on
// UpdatedAt, calls run their lifecycle state machine, and everything else
// degrades to a logged no-op.
type Store struct {
	logger *slog.Logger
	now    func() time.Time

	orders        map[string]*domain.Order
	calls         map[string]*domain.Call
	customers     map[string]*domain.Customer
	notifications []*domain.Notification
}

// NewStore creates an empty projection.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		logger:    logger.With("component", "agent_store"),
		now:       time.Now,
		orders:    make(map[string]*domain.Order),
		calls:     make(map[string]*domain.Call),
		customers: make(map[string]*domain.Customer),
	}
}

// ApplyEvent folds one domain event into the projection.
func (s *Store) ApplyEvent(event domain.Event) {
	switch event.Type {
	case domain.EventOrderCreated, domain.EventOrderUpdated:
		s.applyOrder(event)
	case domain.EventCustomerUpdated:
		s.applyCustomer(event)
	case domain.EventPaymentProcessed:
		s.applyPayment(event)
	case domain.EventInventoryUpdated:
		s.applyInventory(event)
	case domain.EventCallIncoming:
		s.applyCallIncoming(event)
	case domain.EventCallAnswered:
		s.applyCallDelta(event, domain.CallConnected)
	case domain.EventCallEnded:
		s.applyCallDelta(event, domain.CallEnded)
	case domain.EventNotification:
		s.applyNotification(event)
	default:
		s.logger.Warn("ignoring event of unknown type", "event_type", event.Type)
	}
}

// applyOrder merges an incoming order snapshot by last-write-wins on
// UpdatedAt. Only a strictly newer copy supersedes; an equal timestamp keeps
// the copy already held, so replays and mirrored deliveries are no-ops.
func (s *Store) applyOrder(event domain.Event) {
	var incoming domain.Order
	if err := json.Unmarshal(event.Payload, &incoming); err != nil {
		s.logger.Warn("dropping undecodable order event", "event_type", event.Type, "error", err)
		return
	}
	if incoming.ID == "" {
		s.logger.Warn("dropping order event without id", "event_type", event.Type)
		return
	}

	existing, ok := s.orders[incoming.ID]
	if !ok {
		s.orders[incoming.ID] = &incoming
		return
	}

	if !incoming.NewerThan(existing) {
		// Stale or duplicate delivery. Deliberately silent.
		return
	}

	if incoming.Status != existing.Status && !existing.Status.CanTransitionTo(incoming.Status) {
		// Timestamp wins over workflow legality; the write path already
		// validated the authoritative copy.
		s.logger.Warn("merging order with irregular status transition",
			"order_id", incoming.ID,
			"from", existing.Status,
			"to", incoming.Status,
		)
	}

	s.orders[incoming.ID] = &incoming
}

func (s *Store) applyCustomer(event domain.Event) {
	var incoming domain.Customer
	if err := json.Unmarshal(event.Payload, &incoming); err != nil {
		s.logger.Warn("dropping undecodable customer event", "error", err)
		return
	}
	if incoming.ID == "" {
		return
	}

	if existing, ok := s.customers[incoming.ID]; ok && !incoming.UpdatedAt.After(existing.UpdatedAt) {
		return
	}
	s.customers[incoming.ID] = &incoming

	s.appendNotification(domain.Notification{
		ID:      "customer-" + incoming.ID + "-" + event.EmittedAt.UTC().Format(time.RFC3339Nano),
		Type:    domain.NotifySystemAlert,
		Title:   "Customer updated",
		Message: incoming.Name + " was updated",
	})
}

func (s *Store) applyPayment(event domain.Event) {
	var payment domain.PaymentInfo
	if err := json.Unmarshal(event.Payload, &payment); err != nil {
		s.logger.Warn("dropping undecodable payment event", "error", err)
		return
	}

	if order, ok := s.orders[payment.OrderID]; ok && payment.Status.IsValid() {
		order.PaymentStatus = payment.Status
	}

	notificationType := domain.NotifyPaymentReceived
	title := "Payment received"
	if payment.Status == domain.PaymentFailed {
		notificationType = domain.NotifyPaymentFailed
		title = "Payment failed"
	}

	s.appendNotification(domain.Notification{
		ID:      "payment-" + payment.OrderID + "-" + event.EmittedAt.UTC().Format(time.RFC3339Nano),
		Type:    notificationType,
		Title:   title,
		Message: "Order " + payment.OrderID + " payment " + string(payment.Status),
	})
}

func (s *Store) applyInventory(event domain.Event) {
	var change domain.InventoryChange
	if err := json.Unmarshal(event.Payload, &change); err != nil {
		s.logger.Warn("dropping undecodable inventory event", "error", err)
		return
	}

	// Restocks are not worth interrupting an agent for.
	if change.Quantity >= change.PreviousQuantity {
		return
	}

	s.appendNotification(domain.Notification{
		ID:      "inventory-" + change.ProductID + "-" + event.EmittedAt.UTC().Format(time.RFC3339Nano),
		Type:    domain.NotifyInventoryLow,
		Title:   "Stock running low",
		Message: "Product " + change.ProductID + " is down to " + strconv.Itoa(change.Quantity),
	})
}

func (s *Store) applyCallIncoming(event domain.Event) {
	var call domain.Call
	if err := json.Unmarshal(event.Payload, &call); err != nil {
		s.logger.Warn("dropping undecodable call event", "error", err)
		return
	}
	if call.ID == "" {
		return
	}
	if _, ok := s.calls[call.ID]; ok {
		// Duplicate ring.
		return
	}

	if call.Status == "" {
		call.Status = domain.CallIncoming
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = s.now().UTC()
	}
	s.calls[call.ID] = &call

	s.appendNotification(domain.Notification{
		ID:      "call-" + call.ID,
		Type:    domain.NotifyCustomerCall,
		Title:   "Incoming call",
		Message: "Customer " + call.CustomerID + " is calling",
	})
}

// applyCallDelta handles call_answered and call_ended. The wire may carry a
// full Call record or a sparse delta; the delta's status, when present,
// overrides the default for the event type (a call_ended delta with status
// missed records an unanswered call).
func (s *Store) applyCallDelta(event domain.Event, defaultNext domain.CallStatus) {
	var delta domain.CallDelta
	if err := json.Unmarshal(event.Payload, &delta); err != nil {
		s.logger.Warn("dropping undecodable call event", "event_type", event.Type, "error", err)
		return
	}

	callID := delta.TargetCallID()
	call, ok := s.calls[callID]
	if !ok {
		s.logger.Warn("ignoring delta for unknown call", "event_type", event.Type, "call_id", callID)
		return
	}

	next := defaultNext
	if delta.Status != "" {
		next = delta.Status
	}

	if err := call.Transition(next); err != nil {
		s.logger.Warn("ignoring invalid call transition",
			"call_id", callID,
			"from", call.Status,
			"to", next,
		)
		return
	}

	if delta.AgentID != "" {
		call.AgentID = delta.AgentID
	}
	if delta.OrderID != "" {
		call.OrderID = delta.OrderID
	}
}

func (s *Store) applyNotification(event domain.Event) {
	var message domain.NotificationMessage
	if err := json.Unmarshal(event.Payload, &message); err != nil {
		s.logger.Warn("dropping undecodable notification event", "error", err)
		return
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	s.appendNotification(domain.Notification{
		ID:      message.ID,
		Type:    message.Type,
		Title:   message.Title,
		Message: message.Message,
	})
}

// appendNotification adds a notification unless one with the same id is
// already held. Replayed events therefore never duplicate entries.
func (s *Store) appendNotification(notification domain.Notification) {
	for _, held := range s.notifications {
		if held.ID == notification.ID {
			return
		}
	}

	notification.IsRead = false
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now().UTC()
	}
	s.notifications = append(s.notifications, &notification)
}

// MarkNotificationRead marks a notification as read. Applying it twice, or
// to an unknown id, is a no-op. The flag never round-trips to other sessions.
func (s *Store) MarkNotificationRead(id string) {
	for _, notification := range s.notifications {
		if notification.ID == id {
			notification.IsRead = true
			return
		}
	}
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	count := 0
	for _, notification := range s.notifications {
		if !notification.IsRead {
			count++
		}
	}
	return count
}

// Notifications returns the held notifications, newest last.
func (s *Store) Notifications() []domain.Notification {
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, notification := range s.notifications {
		out = append(out, *notification)
	}
	return out
}

// Order returns the held copy of an order, if any.
func (s *Store) Order(id string) (domain.Order, bool) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *order, true
}

// Call returns the held copy of a call, if any.
func (s *Store) Call(id string) (domain.Call, bool) {
	call, ok := s.calls[id]
	if !ok {
		return domain.Call{}, false
	}
	return *call, true
}

// Customer returns the held copy of a customer, if any.
func (s *Store) Customer(id string) (domain.Customer, bool) {
	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, false
	}
	return *customer, true
}

// OrderFilters narrows the result of FilteredOrders. Zero values mean
// "don't filter on this".
type OrderFilters struct {
	Statuses []domain.OrderStatus
	Query    string // matched against order id and customer id
	AgentID  string
	From     time.Time
	To       time.Time
}

// FilteredOrders returns copies of the orders matching the filters, ordered
// by CreatedAt descending with id as the tie-break. It never mutates the
// store; calling it repeatedly with the same state yields equal results.
func (s *Store) FilteredOrders(filters OrderFilters) []domain.Order {
	matched := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if !matchesFilters(order, filters) {
			continue
		}
		matched = append(matched, *order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return matched
}

func matchesFilters(order *domain.Order, filters OrderFilters) bool {
	if len(filters.Statuses) > 0 {
		found := false
		for _, status := range filters.Statuses {
			if order.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filters.Query != "" {
		query := strings.ToLower(filters.Query)
		if !strings.Contains(strings.ToLower(order.ID), query) &&
			!strings.Contains(strings.ToLower(order.CustomerID), query) {
			return false
		}
	}

	if filters.AgentID != "" && order.AgentID != filters.AgentID {
		return false
	}

	if !filters.From.IsZero() && order.CreatedAt.Before(filters.From) {
		return false
	}
	if !filters.To.IsZero() && order.CreatedAt.After(filters.To) {
		return false
	}

	return true
}
