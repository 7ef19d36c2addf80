package handler

import (
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GET /api/v1/products/:kind?low_stock=true
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Unknown product type", nil)
	}

	products, err := h.service.ListProducts(c.UserContext(), kind, c.QueryBool("low_stock", false))
	if err != nil {
		return respondError(c, err)
	}
	if products == nil {
		products = []model.ProductSnapshot{}
	}
	return success(c, fiber.StatusOK, "Products retrieved", products)
}

// GET /api/v1/products/:kind/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Unknown product type", nil)
	}
	id, ok := parseProductID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID", nil)
	}

	product, err := h.service.GetProduct(c.UserContext(), kind, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Product retrieved", product)
}

// POST /api/v1/products/:kind
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Unknown product type", nil)
	}
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON", nil)
	}

	product, err := h.service.CreateProduct(c.UserContext(), kind, &req, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Product created", product)
}

// PUT /api/v1/products/:kind/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Unknown product type", nil)
	}
	id, ok := parseProductID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID", nil)
	}
	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON", nil)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), kind, id, &req, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Product updated", product)
}

// AdjustStock applies a manual restock or write-off.
// POST /api/v1/products/:kind/:id/stock
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Unknown product type", nil)
	}
	id, ok := parseProductID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID", nil)
	}
	var req service.StockAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON", nil)
	}

	result, err := h.service.AdjustStock(c.UserContext(), kind, id, &req, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Stock adjusted", fiber.Map{
		"product_type": kind,
		"product_id":   id,
		"new_stock":    result.NewStock,
		"log":          result.Log,
	})
}

// GET /api/v1/products/low-stock
func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.service.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if products == nil {
		products = []model.ProductSnapshot{}
	}
	return success(c, fiber.StatusOK, "Low stock products retrieved", products)
}

// GET /api/v1/stock-logs?product_type&product_id&limit
func (h *ProductHandler) GetStockLogs(c *fiber.Ctx) error {
	filter := repository.StockLogFilter{
		Kind:  model.ProductKind(c.Query("product_type")),
		Limit: c.QueryInt("limit", 100),
	}
	if pid := c.QueryInt("product_id", 0); pid > 0 {
		filter.ProductID = uint(pid)
	}

	logs, err := h.service.StockLogs(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	if logs == nil {
		logs = []model.StockLog{}
	}
	return success(c, fiber.StatusOK, "Stock logs retrieved", logs)
}
