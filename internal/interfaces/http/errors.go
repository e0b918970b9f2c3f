package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// writeError traduce errores de dominio a dto.ErrorResponse. Una operación enviada a
// aprobación no es error: responde 202 con el id de la solicitud.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	if req, ok := domain.AsApprovalRequired(err); ok {
		return c.Status(fiber.StatusAccepted).JSON(dto.ApprovalRequiredResponse{
			RequestID:   req.RequestID,
			RequestType: req.RequestType,
			Message:     "la operación quedó pendiente de aprobación",
		})
	}
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInventoryCodeTaken):
		status, code = fiber.StatusConflict, "INVENTORY_CODE_TAKEN"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrRouteAlreadyCompleted):
		status, code = fiber.StatusConflict, "ROUTE_ALREADY_COMPLETED"
	case errors.Is(err, domain.ErrRouteCompleted):
		status, code = fiber.StatusConflict, "ROUTE_COMPLETED"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	}
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error no controlado")
		return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: "error interno"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
