package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// jsonError writes the stable denial shape: a machine-readable code, a human
// message, and optional extra context fields.
func jsonError(c *fiber.Ctx, status int, code string, message string, extra fiber.Map) error {
	body := fiber.Map{
		"code":    code,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// extractBearer returns the bearer token from the Authorization header, or "".
func extractBearer(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
