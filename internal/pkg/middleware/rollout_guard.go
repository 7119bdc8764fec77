package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/internal/pkg/rollout"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// Rollout policy middleware. Requests without a resolved country code pass
// through untouched since not every caller carries tenant context.

// RequireCountryActive denies requests from countries the platform has not
// launched in.
func RequireCountryActive(guard *rollout.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if uc.CountryCode == "" {
			return c.Next()
		}
		return rolloutDecision(c, guard.CountryActive(uc.CountryCode))
	}
}

// RequireModule denies requests for modules not rolled out to the tenant's
// country.
func RequireModule(guard *rollout.Guard, module string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if uc.CountryCode == "" {
			return c.Next()
		}
		return rolloutDecision(c, guard.ModuleAllowed(uc.CountryCode, module))
	}
}

// RequireFeature denies requests for features not rolled out to the tenant's
// country.
func RequireFeature(guard *rollout.Guard, feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if uc.CountryCode == "" {
			return c.Next()
		}
		return rolloutDecision(c, guard.FeatureEnabled(uc.CountryCode, feature))
	}
}

func rolloutDecision(c *fiber.Ctx, d rollout.Decision) error {
	if d.Allowed {
		return c.Next()
	}
	return jsonError(c, fiber.StatusForbidden, d.Code, "Not available in your region", nil)
}
