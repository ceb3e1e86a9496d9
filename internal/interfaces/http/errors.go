package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/domain"
)

// respondError mapea el Kind del error de dominio a un código HTTP y responde
// con {code, message}: code es el Kind y message la clave de localización
// estable que consume el frontend.
func respondError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	key := domain.KeyOf(err)
	if key == "" {
		key = "posInternalError"
	}
	var status int
	switch kind {
	case domain.KindNotFound:
		status = fiber.StatusNotFound
	case domain.KindConflict:
		status = fiber.StatusConflict
	case domain.KindBadRequest:
		status = fiber.StatusBadRequest
	case domain.KindForbidden:
		status = fiber.StatusForbidden
	case domain.KindUnauthorized:
		status = fiber.StatusUnauthorized
	default:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: string(kind), Message: key})
}
