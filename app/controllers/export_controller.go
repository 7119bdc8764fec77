package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// HandleDataExport returns the tenant's billing and entitlement state as one
// document. The route is feature-gated and step-up gated; the audit entry
// comes from the recorder decorator wrapping the route, not from this
// handler.
func HandleDataExport(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	repos := repository.GetGlobalRepositories()

	sub, err := repos.Subscription.GetActiveByTenant(uc.TenantID)
	if err != nil {
		sub = nil
	}
	records, err := repos.Entitlement.ListByTenant(uc.TenantID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not load entitlements")
	}

	return c.JSON(fiber.Map{
		"tenant_id":    uc.TenantID,
		"exported_at":  time.Now().UTC(),
		"subscription": sub,
		"entitlements": records,
	})
}
