package domain

import (
	"time"

	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

// Customer is the customer record carried by customer_updated events and
// managed through the persistence collaborator.
type Customer struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branchId"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	IsVIP         bool      `json:"isVip"`
	IsBlacklisted bool      `json:"isBlacklisted"`
	TotalOrders   int       `json:"totalOrders"`
	TotalSpent    float64   `json:"totalSpent"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CustomerParams holds the input for creating a new customer.
type CustomerParams struct {
	BranchID string
	Name     string
	Phone    string
	Email    string
}

// NewCustomer is a factory function to create a valid new customer.
func NewCustomer(params CustomerParams) (*Customer, error) {
	errs := apperrors.NewValidationErrors()

	if params.Name == "" {
		errs.Add("name", "Name is required")
	}
	if params.Phone == "" {
		errs.Add("phone", "Phone is required")
	}
	if params.BranchID == "" {
		errs.Add("branchId", "Branch ID is required")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	now := time.Now().UTC()
	return &Customer{
		BranchID:  params.BranchID,
		Name:      params.Name,
		Phone:     params.Phone,
		Email:     params.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
