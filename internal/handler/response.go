package handler

import (
	"strconv"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string, errs interface{}) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if errs != nil {
		body["errors"] = errs
	}
	return c.Status(status).JSON(body)
}

// respondError maps the ledger error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var validation *service.ValidationError
	var insufficient *repository.InsufficientStockError

	switch {
	case errors.As(err, &validation):
		return fail(c, fiber.StatusBadRequest, validation.Message, validation.Fields)
	case errors.As(err, &insufficient):
		return fail(c, fiber.StatusConflict, insufficient.Error(), fiber.Map{"product": insufficient})
	case errors.Is(err, repository.ErrProductNotFound):
		return fail(c, fiber.StatusNotFound, "Product not found", nil)
	case errors.Is(err, repository.ErrTransactionNotFound):
		return fail(c, fiber.StatusNotFound, "Transaction not found", nil)
	case errors.Is(err, service.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Forbidden", nil)
	case errors.Is(err, repository.ErrConcurrentModification):
		return fail(c, fiber.StatusConflict, "Concurrent modification, retry the request", nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserInactive):
		return fail(c, fiber.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, service.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, err.Error(), nil)
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	return fail(c, fiber.StatusInternalServerError, "Internal Server Error", nil)
}

func currentActor(c *fiber.Ctx) model.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

func parseKind(c *fiber.Ctx) (model.ProductKind, bool) {
	kind := model.ProductKind(c.Params("kind"))
	return kind, kind.Valid()
}

func parseProductID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
