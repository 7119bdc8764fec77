package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/internal/pkg/stepup"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// RequireStepUp guards a high-risk route: the user must have completed a
// step-up verification for exactly this purpose, and the verification is
// consumed by passing the gate, so one code authorizes one action.
func RequireStepUp(svc *stepup.Service, purpose stepup.Purpose) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return jsonError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required", nil)
		}

		ok, err := svc.ConsumeVerification(c.Context(), uc.UserID, purpose)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not check verification state", nil)
		}
		if !ok {
			return jsonError(c, fiber.StatusUnauthorized, "STEP_UP_REQUIRED", "Please verify your identity to "+purpose.Label(), fiber.Map{
				"purpose": string(purpose),
			})
		}
		return c.Next()
	}
}
