package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/pkg/jwt"
)

// Locals keys para actor y organización en Fiber.
const (
	LocalUserID = "user_id"
	LocalOrgID  = "organization_id"
)

// HeaderIdempotencyKey header opcional que los clientes mandan en operaciones
// de escritura para repetirlas sin duplicar efectos.
const HeaderIdempotencyKey = "Idempotency-Key"

// AuthMiddleware valida el Bearer Token JWT y extrae UserID y OrganizationID a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "posMissingToken"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "posInvalidToken"})
		}
		claims, err := jwt.Parse(jwtSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "posInvalidToken"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalOrgID, claims.OrganizationID)
		return c.Next()
	}
}

// RequestIDMiddleware propaga X-Request-ID (o genera uno) hacia el contexto
// para que termine en las entradas de auditoría.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("X-Request-ID", id)
		c.SetUserContext(pos.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetOrgID devuelve el OrganizationID del contexto (después del middleware de auth).
func GetOrgID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalOrgID).(string)
	return s
}
