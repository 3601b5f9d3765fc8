package services

import (
	"context"
	"sync"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// CustomerService implements business logic for customer records
type CustomerService struct {
	customerRepo ports.CustomerRepository
	authzSvc     ports.AuthorizationService
	broadcaster  ports.EventBroadcaster
	wg           sync.WaitGroup
}

var _ ports.CustomerService = (*CustomerService)(nil)

// NewCustomerService creates a new customer service
func NewCustomerService(
	customerRepo ports.CustomerRepository,
	authzSvc ports.AuthorizationService,
	broadcaster ports.EventBroadcaster,
) ports.CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		authzSvc:     authzSvc,
		broadcaster:  broadcaster,
	}
}

// CreateCustomer registers a new customer for the actor's branch
func (s *CustomerService) CreateCustomer(ctx context.Context, params ports.CreateCustomerParams) (*domain.Customer, error) {
	if !s.authzSvc.Can(params.Actor.Role, CapCustomersWrite) {
		return nil, apperrors.ErrForbidden
	}

	customer, err := domain.NewCustomer(domain.CustomerParams{
		BranchID: params.Actor.BranchID,
		Name:     params.Name,
		Phone:    params.Phone,
		Email:    params.Email,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.customerRepo.Create(ctx, customer)
	if err != nil {
		return nil, err
	}

	s.broadcast(created)

	return created, nil
}

// GetCustomer retrieves a customer record with authorization
func (s *CustomerService) GetCustomer(ctx context.Context, actor ports.Actor, customerID string) (*domain.Customer, error) {
	if !s.authzSvc.Can(actor.Role, CapCustomersRead) {
		return nil, apperrors.ErrForbidden
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.BranchID != actor.BranchID {
		return nil, apperrors.ErrCustomerNotFound
	}

	return customer, nil
}

// UpdateCustomer applies a partial update to a customer record
func (s *CustomerService) UpdateCustomer(ctx context.Context, params ports.UpdateCustomerParams) (*domain.Customer, error) {
	if !s.authzSvc.Can(params.Actor.Role, CapCustomersWrite) {
		return nil, apperrors.ErrForbidden
	}

	customer, err := s.customerRepo.GetByID(ctx, params.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.BranchID != params.Actor.BranchID {
		return nil, apperrors.ErrCustomerNotFound
	}

	if params.Name != nil {
		customer.Name = *params.Name
	}
	if params.Phone != nil {
		customer.Phone = *params.Phone
	}
	if params.Email != nil {
		customer.Email = *params.Email
	}
	if params.IsVIP != nil {
		customer.IsVIP = *params.IsVIP
	}
	if params.IsBlacklisted != nil {
		customer.IsBlacklisted = *params.IsBlacklisted
	}

	updated, err := s.customerRepo.Update(ctx, customer)
	if err != nil {
		return nil, err
	}

	s.broadcast(updated)

	return updated, nil
}

// ListCustomers retrieves the branch's customers
func (s *CustomerService) ListCustomers(ctx context.Context, actor ports.Actor, limit, offset int) ([]*domain.Customer, error) {
	if !s.authzSvc.Can(actor.Role, CapCustomersRead) {
		return nil, apperrors.ErrForbidden
	}
	return s.customerRepo.List(ctx, actor.BranchID, limit, offset)
}

// broadcast publishes a customer_updated event without blocking the caller
func (s *CustomerService) broadcast(customer *domain.Customer) {
	event, err := domain.NewEvent(domain.EventCustomerUpdated, customer.BranchID, customer.ID, customer)
	if err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcaster.Publish(event)
	}()
}

func (s *CustomerService) Shutdown() {
	s.wg.Wait()
}
