package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/hpos/callcenter-backend/internal/adapters/primary/http/middleware"
	"github.com/hpos/callcenter-backend/internal/adapters/primary/validation"
	"github.com/hpos/callcenter-backend/internal/auth"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

const maxCustomersPerPage = 100

// CustomerHandler handles HTTP requests for customers
type CustomerHandler struct {
	customerService ports.CustomerService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(
	customerService ports.CustomerService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "customer"),
	}
}

// RegisterRoutes sets up the routing for all customer endpoints.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListCustomers)
	r.Post("/", h.HandleCreateCustomer)

	r.Route("/{customerID}", func(r chi.Router) {
		r.Get("/", h.HandleGetCustomer)
		r.Patch("/", h.HandleUpdateCustomer)
	})
}

// CreateCustomerRequest defines the expected JSON body for creating a customer
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Validate validates the create customer request
func (r *CreateCustomerRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).MaxLength("name", r.Name, 200)
	v.Required("phone", r.Phone).Phone("phone", r.Phone)
	v.Email("email", r.Email)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateCustomerRequest defines the expected JSON body for updating a customer.
// All fields are optional; only provided fields are applied.
type UpdateCustomerRequest struct {
	Name          *string `json:"name"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	IsVIP         *bool   `json:"isVip"`
	IsBlacklisted *bool   `json:"isBlacklisted"`
}

// Validate validates the update customer request
func (r *UpdateCustomerRequest) Validate() error {
	v := validation.NewValidator()

	if r.Name != nil {
		v.Required("name", *r.Name).MaxLength("name", *r.Name, 200)
	}
	if r.Phone != nil {
		v.Required("phone", *r.Phone).Phone("phone", *r.Phone)
	}
	if r.Email != nil {
		v.Email("email", *r.Email)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleListCustomers handles GET /customers
func (h *CustomerHandler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxCustomersPerPage)

	customers, err := h.customerService.ListCustomers(r.Context(), actorFromClaims(claims), pagination.Limit+1, pagination.Offset)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, customers, pagination.Limit, pagination.Offset)
}

// HandleCreateCustomer handles POST /customers
func (h *CustomerHandler) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateCustomerRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateCustomerParams{
		Actor: actorFromClaims(claims),
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}

	customer, err := h.customerService.CreateCustomer(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("customer created",
		"customer_id", customer.ID,
		"user_id", claims.UserID,
		"branch_id", customer.BranchID,
	)

	WriteCreated(w, customer)
}

// HandleGetCustomer handles GET /customers/{customerID}
func (h *CustomerHandler) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(r.Context(), actorFromClaims(claims), chi.URLParam(r, "customerID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, customer)
}

// HandleUpdateCustomer handles PATCH /customers/{customerID}
func (h *CustomerHandler) HandleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateCustomerRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateCustomerParams{
		Actor:         actorFromClaims(claims),
		CustomerID:    chi.URLParam(r, "customerID"),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		IsVIP:         req.IsVIP,
		IsBlacklisted: req.IsBlacklisted,
	}

	customer, err := h.customerService.UpdateCustomer(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("customer updated",
		"customer_id", customer.ID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, customer)
}

// getClaims extracts and validates user claims from the request context
func (h *CustomerHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
