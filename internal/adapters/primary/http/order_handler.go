package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/hpos/callcenter-backend/internal/adapters/primary/http/middleware"
	"github.com/hpos/callcenter-backend/internal/adapters/primary/validation"
	"github.com/hpos/callcenter-backend/internal/auth"
	"github.com/hpos/callcenter-backend/internal/core/domain"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

const maxOrdersPerPage = 100

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService ports.OrderService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	orderService ports.OrderService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "order"),
	}
}

// RegisterRoutes sets up the routing for all order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListOrders)
	r.Post("/", h.HandleCreateOrder)

	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", h.HandleGetOrder)
		r.Put("/status", h.HandleUpdateOrderStatus)
		r.Put("/assign", h.HandleAssignOrder)
		r.Put("/payment", h.HandleProcessPayment)
	})
}

// --- Request/Response DTOs ---

// OrderItemRequest is one line item of a create order request
type OrderItemRequest struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Notes     string  `json:"notes"`
}

// CreateOrderRequest defines the expected JSON body for creating an order
type CreateOrderRequest struct {
	CustomerID string             `json:"customerId"`
	Items      []OrderItemRequest `json:"items"`
	Discount   float64            `json:"discount"`
	Notes      string             `json:"notes"`
}

// Validate validates the create order request
func (r *CreateOrderRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("customerId", r.CustomerID)
	v.Custom("items", len(r.Items) > 0, "Order must contain at least one item")
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			v.Custom("items", false, "Item quantity must be positive")
			break
		}
	}
	v.Custom("discount", r.Discount >= 0, "Discount cannot be negative")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateOrderStatusRequest defines the expected JSON body for status updates
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateOrderStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{
			"pending", "confirmed", "preparing", "ready",
			"out_for_delivery", "delivered", "cancelled", "refunded",
		})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignOrderRequest defines the expected JSON body for assigning an order
type AssignOrderRequest struct {
	AgentID string `json:"agentId"`
}

// Validate validates the assign order request
func (r *AssignOrderRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("agentId", r.AgentID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ProcessPaymentRequest defines the expected JSON body for recording a payment
type ProcessPaymentRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	Status string  `json:"status"`
}

// Validate validates the payment request
func (r *ProcessPaymentRequest) Validate() error {
	v := validation.NewValidator()

	v.Positive("amount", r.Amount)
	v.Required("method", r.Method).
		OneOf("method", r.Method, []string{"cash", "card", "online"})
	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{
			"pending", "paid", "failed", "refunded", "partially_refunded",
		})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleListOrders handles GET /orders
func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxOrdersPerPage)

	var status *domain.OrderStatus
	if statusStr := validation.ParseStringQueryParam(r, "status"); statusStr != nil {
		parsed := domain.OrderStatus(*statusStr)
		if !parsed.IsValid() {
			v := validation.NewValidator()
			v.Custom("status", false, "Unknown order status")
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		status = &parsed
	}

	params := ports.ListOrdersParams{
		Actor:  actorFromClaims(claims),
		Status: status,
		Limit:  pagination.Limit + 1,
		Offset: pagination.Offset,
	}

	orders, err := h.orderService.ListOrders(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, orders, pagination.Limit, pagination.Offset)
}

// HandleCreateOrder handles POST /orders
func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateOrderRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		})
	}

	params := ports.CreateOrderParams{
		Actor:      actorFromClaims(claims),
		CustomerID: req.CustomerID,
		Items:      items,
		Discount:   req.Discount,
		Notes:      req.Notes,
	}

	order, err := h.orderService.CreateOrder(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("order created",
		"order_id", order.ID,
		"user_id", claims.UserID,
		"branch_id", order.BranchID,
	)

	WriteCreated(w, order)
}

// HandleGetOrder handles GET /orders/{orderID}
func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), actorFromClaims(claims), chi.URLParam(r, "orderID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, order)
}

// HandleUpdateOrderStatus handles PUT /orders/{orderID}/status
func (h *OrderHandler) HandleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateOrderStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateOrderStatusParams{
		Actor:   actorFromClaims(claims),
		OrderID: chi.URLParam(r, "orderID"),
		Status:  domain.OrderStatus(req.Status),
	}

	order, err := h.orderService.UpdateStatus(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("order status updated",
		"order_id", order.ID,
		"new_status", req.Status,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, order)
}

// HandleAssignOrder handles PUT /orders/{orderID}/assign
func (h *OrderHandler) HandleAssignOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[AssignOrderRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.AssignOrderParams{
		Actor:   actorFromClaims(claims),
		OrderID: chi.URLParam(r, "orderID"),
		AgentID: req.AgentID,
	}

	order, err := h.orderService.AssignOrder(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("order assigned",
		"order_id", order.ID,
		"agent_id", req.AgentID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, order)
}

// HandleProcessPayment handles PUT /orders/{orderID}/payment
func (h *OrderHandler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[ProcessPaymentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.ProcessPaymentParams{
		Actor:   actorFromClaims(claims),
		OrderID: chi.URLParam(r, "orderID"),
		Amount:  req.Amount,
		Method:  req.Method,
		Status:  domain.PaymentStatus(req.Status),
	}

	order, err := h.orderService.ProcessPayment(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("payment processed",
		"order_id", order.ID,
		"payment_status", req.Status,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, order)
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *OrderHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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

// actorFromClaims builds the service-layer actor identity from JWT claims
func actorFromClaims(claims *auth.Claims) ports.Actor {
	return ports.Actor{
		UserID:   claims.UserID,
		BranchID: claims.BranchID,
		Role:     claims.Role,
	}
}
