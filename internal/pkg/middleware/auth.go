package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// RequireAuth ensures a resolved user on the request and returns JSON 401 otherwise.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required", nil)
	}
	return c.Next()
}

// RequireAdmin ensures the effective user holds the admin role. Under
// impersonation the target's role decides: viewing as a non-admin never
// grants admin routes.
func RequireAdmin(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required", nil)
	}
	if !uc.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "ADMIN_REQUIRED", "Administrator access required", nil)
	}
	return c.Next()
}
