package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe/zapgateway/internal/errs"
)

// fail converte os erros dos serviços em respostas HTTP. O mapeamento
// é o contrato da API: validação 400, auth 401, limites 403/429,
// inexistente 404, duplicado 409, resto 500.
func fail(c *fiber.Ctx, err error) error {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "VALIDATION_ERROR",
			"message": ve.Message,
			"field":   ve.Field,
		})
	}

	if le, ok := errs.AsLimitExceeded(err); ok {
		status := fiber.StatusForbidden
		message := "Limit reached"
		switch le.Resource {
		case "accounts":
			message = "Account limit reached"
		case "messages":
			message = "Message limit reached"
		case "queue":
			status = fiber.StatusTooManyRequests
			message = "Send queue full"
		}

		return c.Status(status).JSON(fiber.Map{
			"error":   message,
			"current": le.Current,
			"limit":   le.Limit,
		})
	}

	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "UNAUTHORIZED",
		})

	case errors.Is(err, errs.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "NOT_FOUND",
			"message": err.Error(),
		})

	case errors.Is(err, errs.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "ALREADY_EXISTS",
			"message": err.Error(),
		})

	case errors.Is(err, errs.ErrNotConnected):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "NOT_CONNECTED",
			"message": "session is not connected",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":     "INTERNAL_ERROR",
		"message":   err.Error(),
		"timestamp": time.Now().Unix(),
	})
}
