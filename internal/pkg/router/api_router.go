package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/stratumhq/stratum/app/controllers"
	"github.com/stratumhq/stratum/internal/pkg/constants"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
	"github.com/stratumhq/stratum/internal/pkg/middleware"
	"github.com/stratumhq/stratum/internal/pkg/stepup"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	v1 := api.Group("/v1")

	// auth
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/auth/me", controllers.HandleMe)

	// step-up verification. Verify gets its own tight limiter since each
	// attempt consumes the challenge and a flood of attempts is the only
	// brute-force surface.
	v1.Post("/stepup/challenge", middleware.RequireAuth, controllers.HandleStepUpChallenge)
	v1.Post("/stepup/verify", middleware.RequireAuth, limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
	}), controllers.HandleStepUpVerify)

	// billing and subscription
	billingGroup := v1.Group("/billing", middleware.RequireAuth)
	billingGroup.Post("/subscribe", controllers.HandleSubscribe)
	billingGroup.Post("/change-plan",
		middleware.RequireStepUp(stepUpService, stepup.PurposeBillingChange),
		controllers.HandleChangePlan)
	v1.Post("/billing/webhook", controllers.HandleBillingWebhook)

	// add-on entitlements. Trial-expired tenants may still see and manage
	// their add-ons; using a paid module is what the gates below block.
	entGroup := v1.Group("/entitlements", middleware.RequireAuth, subscriptionGt.Require(middleware.GateOptions{AllowTrial: true}))
	entGroup.Get("/", controllers.HandleListEntitlements)
	entGroup.Get("/:code", controllers.HandleCheckEntitlement)
	entGroup.Post("/", controllers.HandleInstallAddon)
	entGroup.Delete("/:code", controllers.HandleCancelAddon)

	// module routes, each behind the full gate chain: rollout policy first,
	// then billing state and module capability.
	h.registerModuleRoutes(v1)

	// impersonation
	imp := v1.Group("/impersonation", middleware.RequireAuth)
	imp.Post("/start",
		middleware.RequireAdmin,
		middleware.RequireStepUp(stepUpService, stepup.PurposeImpersonate),
		controllers.HandleImpersonationStart)
	imp.Post("/exit", controllers.HandleImpersonationExit)
	imp.Get("/status", controllers.HandleImpersonationStatus)

	// tenant data export, audited by the recorder decorator
	v1.Get("/export",
		middleware.RequireAuth,
		subscriptionGt.Require(middleware.GateOptions{Feature: "audit_export"}),
		middleware.RequireStepUp(stepUpService, stepup.PurposeDataExport),
		auditRecorder.Middleware("tenant.data_export", "tenant"),
		controllers.HandleDataExport)

	// platform administration
	admin := v1.Group("/admin", middleware.RequireAuth, middleware.RequireAdmin)
	admin.Get("/rollout/:code", controllers.HandleAdminGetPolicy)
	admin.Put("/rollout/:code", controllers.HandleAdminUpsertPolicy)
	admin.Put("/users/:id/role",
		middleware.RequireStepUp(stepUpService, stepup.PurposeChangeRole),
		controllers.HandleAdminChangeRole)
}

// registerModuleRoutes wires one representative endpoint per gated module.
// Real module handlers live with their modules; these endpoints answer the
// capability question that clients probe before rendering navigation.
func (h ApiRouter) registerModuleRoutes(v1 fiber.Router) {
	modules := v1.Group("/modules", middleware.RequireAuth, middleware.RequireCountryActive(rolloutGuard))

	gated := func(module string) []fiber.Handler {
		return []fiber.Handler{
			middleware.RequireModule(rolloutGuard, module),
			subscriptionGt.Require(middleware.GateOptions{Module: module}),
		}
	}

	for _, module := range []string{"invoicing", "contacts", "expenses", "reports", "hrms", "payroll", "legal", "logistics", "hostel", "employee_directory", "leave_calendar"} {
		m := module
		handlers := append(gated(m), func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"module": m, "available": true})
		})
		modules.Get("/"+m, handlers...)
	}

	// api_access is tier-gated rather than add-on gated
	modules.Get("/api_access",
		subscriptionGt.Require(middleware.GateOptions{MinTier: entitlements.TierEnterprise}),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"module": "api_access", "available": true})
		})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
