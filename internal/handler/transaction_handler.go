package handler

import (
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	service service.LedgerService
}

func NewTransactionHandler(s service.LedgerService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// CreateTransaction records a sale.
// POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON", nil)
	}

	tx, err := h.service.CreateTransaction(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Transaction created", tx)
}

// VoidTransaction reverses a sale and restocks its items.
// DELETE /api/v1/transactions/:id?reason=
func (h *TransactionHandler) VoidTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid transaction ID", nil)
	}

	result, err := h.service.VoidTransaction(c.UserContext(), id, c.Query("reason"), currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Transaction voided", result)
}

// GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid transaction ID", nil)
	}

	tx, err := h.service.GetTransaction(c.UserContext(), id, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Transaction retrieved", tx)
}

// GetTransactions lists transactions newest first.
// Query params: cashier_id, payment_method, date_from, date_to, page, limit
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{
		PaymentMethod: model.PaymentMethod(c.Query("payment_method")),
		Page:          c.QueryInt("page", 1),
		Limit:         c.QueryInt("limit", 20),
	}

	if raw := c.Query("cashier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid cashier_id", nil)
		}
		filter.CashierID = &id
	}
	if raw := c.Query("date_from"); raw != "" {
		from, err := parseDate(raw, false)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid date_from, use YYYY-MM-DD or RFC3339", nil)
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := parseDate(raw, true)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid date_to, use YYYY-MM-DD or RFC3339", nil)
		}
		filter.DateTo = &to
	}

	list, err := h.service.ListTransactions(c.UserContext(), filter, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	filter.Normalize()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Transactions retrieved",
		"data":    list,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// GET /api/v1/transactions/today
func (h *TransactionHandler) GetTodayStats(c *fiber.Ctx) error {
	stats, err := h.service.TodayStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Today stats retrieved", stats)
}

// parseDate accepts a bare date or an RFC3339 timestamp. A bare end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
