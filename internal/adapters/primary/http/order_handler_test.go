package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/hpos/callcenter-backend/internal/adapters/primary/http/middleware"
	"github.com/hpos/callcenter-backend/internal/auth"
	"github.com/hpos/callcenter-backend/internal/core/domain"
	"github.com/hpos/callcenter-backend/internal/core/mocks"
	"github.com/hpos/callcenter-backend/internal/core/ports"
	"github.com/hpos/callcenter-backend/internal/core/services"
)

type orderRouterFixture struct {
	router       *chi.Mux
	tokenManager *auth.TokenManager
	orderRepo    *mocks.MockOrderRepository
	broadcaster  *mocks.MockEventBroadcaster
	service      ports.OrderService
}

func newOrderRouter(t *testing.T) *orderRouterFixture {
	t.Helper()

	orderRepo := new(mocks.MockOrderRepository)
	broadcaster := new(mocks.MockEventBroadcaster)
	notifier := new(mocks.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	broadcaster.On("Publish", mock.Anything).Maybe()

	authzService := services.NewAuthorizationService()
	orderService := services.NewOrderService(orderRepo, authzService, notifier, broadcaster, 0.08)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)
	orderHandler := NewOrderHandler(orderService, errorHandler, logger)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	router := chi.NewRouter()
	router.Use(mw.JWTMiddleware(tokenManager))
	router.Route("/orders", orderHandler.RegisterRoutes)

	return &orderRouterFixture{
		router:       router,
		tokenManager: tokenManager,
		orderRepo:    orderRepo,
		broadcaster:  broadcaster,
		service:      orderService,
	}
}

func (f *orderRouterFixture) tokenFor(t *testing.T, role domain.Role, branchID string) string {
	t.Helper()
	token, err := f.tokenManager.GenerateToken(uuid.New(), branchID, role)
	require.NoError(t, err)
	return token
}

func testOrder(branchID string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:         "ord-1",
		BranchID:   branchID,
		CustomerID: "cust-1",
		Status:     domain.OrderPending,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "prod-1", Name: "Margherita", Quantity: 1, UnitPrice: 12.50, TotalPrice: 12.50},
		},
		Subtotal:  12.50,
		Tax:       1.00,
		Total:     13.50,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("creates order and returns 201", func(t *testing.T) {
		f := newOrderRouter(t)
		f.orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(testOrder("branch-1"), nil)

		payload := []byte(`{
			"customerId": "cust-1",
			"items": [{"productId": "prod-1", "name": "Margherita", "quantity": 1, "unitPrice": 12.50}]
		}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/orders", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusCreated, recorder.Code)

		var order domain.Order
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&order))
		assert.Equal(t, "ord-1", order.ID)
		assert.Equal(t, "branch-1", order.BranchID)

		f.service.Shutdown()
	})

	t.Run("rejects order without items", func(t *testing.T) {
		f := newOrderRouter(t)

		payload := []byte(`{"customerId": "cust-1", "items": []}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/orders", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

		var response ValidationErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Contains(t, response.Fields, "items")
	})

	t.Run("rejects kitchen role", func(t *testing.T) {
		f := newOrderRouter(t)

		payload := []byte(`{
			"customerId": "cust-1",
			"items": [{"productId": "prod-1", "name": "Margherita", "quantity": 1, "unitPrice": 12.50}]
		}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/orders", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleKitchen, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		f := newOrderRouter(t)

		req := httptest.NewRequest(stdhttp.MethodPost, "/orders", bytes.NewReader([]byte(`{}`)))
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})
}

func TestOrderHandler_Get(t *testing.T) {
	t.Run("returns order in actor branch", func(t *testing.T) {
		f := newOrderRouter(t)
		f.orderRepo.On("GetByID", mock.Anything, "ord-1").Return(testOrder("branch-1"), nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/orders/ord-1", nil)
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var order domain.Order
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&order))
		assert.Equal(t, "ord-1", order.ID)
	})

	t.Run("hides order from other branch", func(t *testing.T) {
		f := newOrderRouter(t)
		f.orderRepo.On("GetByID", mock.Anything, "ord-1").Return(testOrder("branch-2"), nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/orders/ord-1", nil)
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	t.Run("advances order status", func(t *testing.T) {
		f := newOrderRouter(t)
		confirmed := testOrder("branch-1")
		confirmed.Status = domain.OrderConfirmed
		f.orderRepo.On("GetByID", mock.Anything, "ord-1").Return(testOrder("branch-1"), nil)
		f.orderRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(confirmed, nil)

		payload := []byte(`{"status": "confirmed"}`)
		req := httptest.NewRequest(stdhttp.MethodPut, "/orders/ord-1/status", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var order domain.Order
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&order))
		assert.Equal(t, domain.OrderConfirmed, order.Status)

		f.service.Shutdown()
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		f := newOrderRouter(t)

		payload := []byte(`{"status": "teleported"}`)
		req := httptest.NewRequest(stdhttp.MethodPut, "/orders/ord-1/status", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("rejects skipped transition", func(t *testing.T) {
		f := newOrderRouter(t)
		f.orderRepo.On("GetByID", mock.Anything, "ord-1").Return(testOrder("branch-1"), nil)

		payload := []byte(`{"status": "delivered"}`)
		req := httptest.NewRequest(stdhttp.MethodPut, "/orders/ord-1/status", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleAgent, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, "INVALID_STATUS_TRANSITION", response.Code)
	})
}

func TestOrderHandler_List(t *testing.T) {
	t.Run("returns paginated orders", func(t *testing.T) {
		f := newOrderRouter(t)
		f.orderRepo.On("List", mock.Anything, mock.Anything).Return([]*domain.Order{testOrder("branch-1")}, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/orders?limit=10", nil)
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleManager, "branch-1"))
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var response struct {
			Data       []domain.Order     `json:"data"`
			Pagination PaginationMetadata `json:"pagination"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, 10, response.Pagination.Limit)
		assert.False(t, response.Pagination.HasMore)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		f := newOrderRouter(t)

		req := httptest.NewRequest(stdhttp.MethodGet, "/orders?status=limbo", nil)
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleManager, "branch-1"))
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestOrderHandler_ProcessPayment(t *testing.T) {
	t.Run("records payment", func(t *testing.T) {
		f := newOrderRouter(t)
		paid := testOrder("branch-1")
		paid.PaymentStatus = domain.PaymentPaid
		f.orderRepo.On("GetByID", mock.Anything, "ord-1").Return(testOrder("branch-1"), nil)
		f.orderRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(paid, nil)

		payload := []byte(`{"amount": 13.50, "method": "card", "status": "paid"}`)
		req := httptest.NewRequest(stdhttp.MethodPut, "/orders/ord-1/payment", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleCashier, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var order domain.Order
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&order))
		assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)

		f.service.Shutdown()
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := newOrderRouter(t)

		payload := []byte(`{"amount": 0, "method": "card", "status": "paid"}`)
		req := httptest.NewRequest(stdhttp.MethodPut, "/orders/ord-1/payment", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, domain.RoleCashier, "branch-1"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		f.router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	})
}
