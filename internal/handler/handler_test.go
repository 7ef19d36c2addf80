package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/service/mocks"
	"go-pos-ledger/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	admin = model.Actor{ID: uuid.New(), Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
	kasir = model.Actor{ID: uuid.New(), Name: "Kasir", Email: "kasir@example.com", Role: model.RoleKasir}
)

type testApp struct {
	app       *fiber.App
	ledger    *mocks.MockLedgerService
	catalog   *mocks.MockCatalogService
	dashboard *mocks.MockDashboardService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	auth := new(mocks.MockAuthService)
	auth.On("Authenticate", mock.Anything, "admin-token").Return(admin, nil)
	auth.On("Authenticate", mock.Anything, "kasir-token").Return(kasir, nil)

	ta := &testApp{
		app:       fiber.New(),
		ledger:    new(mocks.MockLedgerService),
		catalog:   new(mocks.MockCatalogService),
		dashboard: new(mocks.MockDashboardService),
	}
	handler.RegisterRoutes(ta.app, handler.Services{
		Auth:      auth,
		Ledger:    ta.ledger,
		Catalog:   ta.catalog,
		Dashboard: ta.dashboard,
	})
	return ta
}

func (ta *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func saleBody() map[string]interface{} {
	return map[string]interface{}{
		"payment_method": "cash",
		"total_price":    "300",
		"items": []map[string]interface{}{
			{"product_type": "laptop", "product_id": 1, "qty": 3, "price": "100"},
		},
	}
}

func TestCreateTransaction(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ta := newTestApp(t)
		tx := &model.Transaction{BaseModel: model.BaseModel{ID: uuid.New()}, CashierID: kasir.ID, TotalPrice: decimal.NewFromInt(300)}
		ta.ledger.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *service.CreateTransactionRequest) bool {
			return len(req.Items) == 1 && req.Items[0].Qty == 3 && req.TotalPrice.Equal(decimal.NewFromInt(300))
		}), kasir).Return(tx, nil)

		status, body := ta.do(t, http.MethodPost, "/api/v1/transactions", "kasir-token", saleBody())
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, tx.ID.String(), body["data"].(map[string]interface{})["id"])
		ta.ledger.AssertExpectations(t)
	})

	t.Run("insufficient stock names the product", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("CreateTransaction", mock.Anything, mock.Anything, kasir).
			Return(nil, &repository.InsufficientStockError{Kind: model.KindLaptop, ProductID: 1, Name: "ThinkPad", Requested: 3, Available: 2})

		status, body := ta.do(t, http.MethodPost, "/api/v1/transactions", "kasir-token", saleBody())
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Insufficient stock for ThinkPad", body["message"])
		product := body["errors"].(map[string]interface{})["product"].(map[string]interface{})
		assert.Equal(t, float64(2), product["available"])
	})

	t.Run("validation failure", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("CreateTransaction", mock.Anything, mock.Anything, kasir).
			Return(nil, &service.ValidationError{Message: "Validation failed", Fields: []*validator.ErrorResponse{{FailedField: "items", Tag: "min"}}})

		status, body := ta.do(t, http.MethodPost, "/api/v1/transactions", "kasir-token", saleBody())
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Len(t, body["errors"], 1)
	})

	t.Run("persistence failure hides details", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("CreateTransaction", mock.Anything, mock.Anything, kasir).
			Return(nil, &repository.PersistenceError{Op: "insert transaction", Err: errors.New("disk full")})

		status, body := ta.do(t, http.MethodPost, "/api/v1/transactions", "kasir-token", saleBody())
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Internal Server Error", body["message"])
	})

	t.Run("concurrent modification", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("CreateTransaction", mock.Anything, mock.Anything, kasir).
			Return(nil, repository.ErrConcurrentModification)

		status, _ := ta.do(t, http.MethodPost, "/api/v1/transactions", "kasir-token", saleBody())
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodPost, "/api/v1/transactions", "", saleBody())
		assert.Equal(t, http.StatusUnauthorized, status)
		ta.ledger.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestVoidTransaction(t *testing.T) {
	id := uuid.New()

	t.Run("admin voids with reason", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("VoidTransaction", mock.Anything, id, "wrong item", admin).
			Return(&service.VoidResult{Voided: true, TransactionID: id, Reason: "wrong item"}, nil)

		status, body := ta.do(t, http.MethodDelete, "/api/v1/transactions/"+id.String()+"?reason=wrong%20item", "admin-token", nil)
		assert.Equal(t, http.StatusOK, status)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, true, data["voided"])
		assert.Equal(t, id.String(), data["transaction_id"])
	})

	t.Run("second void is not found", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("VoidTransaction", mock.Anything, id, "", admin).Return(nil, repository.ErrTransactionNotFound)

		status, body := ta.do(t, http.MethodDelete, "/api/v1/transactions/"+id.String(), "admin-token", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Transaction not found", body["message"])
	})

	t.Run("kasir cannot void", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodDelete, "/api/v1/transactions/"+id.String(), "kasir-token", nil)
		assert.Equal(t, http.StatusForbidden, status)
		ta.ledger.AssertNotCalled(t, "VoidTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodDelete, "/api/v1/transactions/not-a-uuid", "admin-token", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestReadTransactions(t *testing.T) {
	t.Run("today is not routed as an id", func(t *testing.T) {
		ta := newTestApp(t)
		ta.ledger.On("TodayStats", mock.Anything).Return(&model.TodayStats{TotalTransactions: 2}, nil)

		status, body := ta.do(t, http.MethodGet, "/api/v1/transactions/today", "admin-token", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["data"].(map[string]interface{})["total_transactions"])
	})

	t.Run("forbidden for other cashier", func(t *testing.T) {
		ta := newTestApp(t)
		id := uuid.New()
		ta.ledger.On("GetTransaction", mock.Anything, id, kasir).Return(nil, service.ErrForbidden)

		status, _ := ta.do(t, http.MethodGet, "/api/v1/transactions/"+id.String(), "kasir-token", nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("list parses filters", func(t *testing.T) {
		ta := newTestApp(t)
		cashier := uuid.New()
		ta.ledger.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f repository.TransactionFilter) bool {
			return f.CashierID != nil && *f.CashierID == cashier &&
				f.PaymentMethod == model.PaymentQRIS &&
				f.DateFrom != nil && f.DateTo != nil && f.DateTo.After(*f.DateFrom) &&
				f.Page == 2 && f.Limit == 5
		}), admin).Return([]model.Transaction{}, nil)

		path := "/api/v1/transactions?cashier_id=" + cashier.String() +
			"&payment_method=qris&date_from=2024-01-01&date_to=2024-01-01&page=2&limit=5"
		status, body := ta.do(t, http.MethodGet, path, "admin-token", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["page"])
		ta.ledger.AssertExpectations(t)
	})

	t.Run("bad date", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodGet, "/api/v1/transactions?date_from=yesterday", "admin-token", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestProductRoutes(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodGet, "/api/v1/products/phone", "admin-token", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("low stock is not routed as a kind", func(t *testing.T) {
		ta := newTestApp(t)
		ta.catalog.On("LowStock", mock.Anything).Return([]model.ProductSnapshot{{ID: 1, Kind: model.KindAccessory, Stock: 3}}, nil)

		status, body := ta.do(t, http.MethodGet, "/api/v1/products/low-stock", "kasir-token", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body["data"], 1)
	})

	t.Run("kasir cannot adjust stock", func(t *testing.T) {
		ta := newTestApp(t)
		status, _ := ta.do(t, http.MethodPost, "/api/v1/products/laptop/1/stock", "kasir-token", map[string]interface{}{"delta": 5})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("admin adjusts stock", func(t *testing.T) {
		ta := newTestApp(t)
		ta.catalog.On("AdjustStock", mock.Anything, model.KindLaptop, uint(1), &service.StockAdjustRequest{Delta: 5}, admin).
			Return(&repository.AdjustResult{Applied: true, NewStock: 12}, nil)

		status, body := ta.do(t, http.MethodPost, "/api/v1/products/laptop/1/stock", "admin-token", map[string]interface{}{"delta": 5})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(12), body["data"].(map[string]interface{})["new_stock"])
	})

	t.Run("missing product", func(t *testing.T) {
		ta := newTestApp(t)
		ta.catalog.On("GetProduct", mock.Anything, model.KindAccessory, uint(9)).Return(nil, repository.ErrProductNotFound)

		status, _ := ta.do(t, http.MethodGet, "/api/v1/products/accessory/9", "kasir-token", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestStockMovement(t *testing.T) {
	ta := newTestApp(t)
	ta.dashboard.On("GetStockMovement", mock.Anything, 7).
		Return([]repository.StockMovementData{{Date: "2024-01-01", Inbound: 5, Outbound: 3}}, nil)

	status, body := ta.do(t, http.MethodGet, "/api/v1/dashboard/stock-movement?days=abc", "admin-token", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["period"])
}
