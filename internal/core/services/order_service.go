package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// OrderService implements business logic for order management
type OrderService struct {
	orderRepo   ports.OrderRepository
	authzSvc    ports.AuthorizationService
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	taxRate     float64
	wg          sync.WaitGroup
}

var _ ports.OrderService = (*OrderService)(nil)

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo ports.OrderRepository,
	authzSvc ports.AuthorizationService,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	taxRate float64,
) ports.OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		authzSvc:    authzSvc,
		notifier:    notifier,
		broadcaster: broadcaster,
		taxRate:     taxRate,
	}
}

// CreateOrder handles the use case for taking a new order
func (s *OrderService) CreateOrder(ctx context.Context, params ports.CreateOrderParams) (*domain.Order, error) {
	// 1. Authorization Check
	if !s.authzSvc.Can(params.Actor.Role, CapOrdersCreate) {
		return nil, apperrors.ErrForbidden
	}

	// 2. Create domain entity with validation
	orderParams := domain.OrderParams{
		CustomerID: params.CustomerID,
		BranchID:   params.Actor.BranchID,
		AgentID:    params.Actor.UserID.String(),
		Items:      params.Items,
		Discount:   params.Discount,
		TaxRate:    s.taxRate,
		Notes:      params.Notes,
	}

	order, err := domain.NewOrder(orderParams)
	if err != nil {
		return nil, err // Validation errors are returned here
	}

	// 3. Persist the order
	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	// 4. Broadcast real-time event (async)
	s.broadcast(domain.EventOrderCreated, created)

	return created, nil
}

// GetOrder retrieves a specific order with authorization
func (s *OrderService) GetOrder(ctx context.Context, actor ports.Actor, orderID string) (*domain.Order, error) {
	if !s.authzSvc.Can(actor.Role, CapOrdersRead) {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Orders are branch-scoped; never serve another branch's order.
	if order.BranchID != actor.BranchID {
		return nil, apperrors.ErrOrderNotFound
	}

	return order, nil
}

// UpdateStatus changes an order's status with workflow enforcement
func (s *OrderService) UpdateStatus(ctx context.Context, params ports.UpdateOrderStatusParams) (*domain.Order, error) {
	// 1. Authorization Check
	if !s.authzSvc.Can(params.Actor.Role, CapOrdersUpdate) {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch and update domain entity
	order, err := s.orderRepo.GetByID(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BranchID != params.Actor.BranchID {
		return nil, apperrors.ErrOrderNotFound
	}

	// 3. Apply status change (domain validates the transition)
	if err := order.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 4. Persist changes
	updated, err := s.orderRepo.Update(ctx, order)
	if err != nil {
		return nil, err
	}

	// 5. Notify the assigned agent (async, in background context)
	if updated.AgentID != "" && updated.AgentID != params.Actor.UserID.String() {
		s.notifyStatusUpdate(updated)
	}

	// 6. Broadcast real-time event (async)
	s.broadcast(domain.EventOrderUpdated, updated)

	return updated, nil
}

// AssignOrder assigns an order to an agent
func (s *OrderService) AssignOrder(ctx context.Context, params ports.AssignOrderParams) (*domain.Order, error) {
	if !s.authzSvc.Can(params.Actor.Role, CapOrdersAssign) {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.GetByID(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BranchID != params.Actor.BranchID {
		return nil, apperrors.ErrOrderNotFound
	}

	if err := order.Assign(params.AgentID); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.Update(ctx, order)
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventOrderUpdated, updated)

	return updated, nil
}

// ProcessPayment records a payment outcome against an order
func (s *OrderService) ProcessPayment(ctx context.Context, params ports.ProcessPaymentParams) (*domain.Order, error) {
	if !s.authzSvc.Can(params.Actor.Role, CapPaymentsProcess) {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.GetByID(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BranchID != params.Actor.BranchID {
		return nil, apperrors.ErrOrderNotFound
	}

	if err := order.RecordPayment(params.Status); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.Update(ctx, order)
	if err != nil {
		return nil, err
	}

	payment := domain.PaymentInfo{
		OrderID: updated.ID,
		Amount:  params.Amount,
		Method:  params.Method,
		Status:  params.Status,
	}
	s.broadcastPayload(domain.EventPaymentProcessed, updated.BranchID, updated.ID, payment)

	return updated, nil
}

// ListOrders retrieves the branch's orders
func (s *OrderService) ListOrders(ctx context.Context, params ports.ListOrdersParams) ([]*domain.Order, error) {
	if !s.authzSvc.Can(params.Actor.Role, CapOrdersRead) {
		return nil, apperrors.ErrForbidden
	}

	filter := ports.OrderFilter{
		BranchID: params.Actor.BranchID,
		Status:   params.Status,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	return s.orderRepo.List(ctx, filter)
}

// notifyStatusUpdate pushes a notification to the assigned agent
func (s *OrderService) notifyStatusUpdate(order *domain.Order) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		s.notifier.Notify(ctx, order.AgentID, domain.NotificationMessage{
			Type:    domain.NotifyOrderUpdated,
			Title:   fmt.Sprintf("Order #%s updated", order.ID),
			Message: fmt.Sprintf("Order #%s is now %s.", order.ID, order.Status),
		})
	}()
}

// broadcast publishes an order-shaped event without blocking the caller
func (s *OrderService) broadcast(eventType domain.EventType, order *domain.Order) {
	s.broadcastPayload(eventType, order.BranchID, order.ID, order)
}

func (s *OrderService) broadcastPayload(eventType domain.EventType, branchID, entityID string, payload any) {
	event, err := domain.NewEvent(eventType, branchID, entityID, payload)
	if err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcaster.Publish(event)
	}()
}

func (s *OrderService) Shutdown() {
	s.wg.Wait()
}
