package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/controllers"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/billing"
	"github.com/stratumhq/stratum/internal/pkg/cache"
	"github.com/stratumhq/stratum/internal/pkg/constants"
	"github.com/stratumhq/stratum/internal/pkg/database"
	"github.com/stratumhq/stratum/internal/pkg/env"
	"github.com/stratumhq/stratum/internal/pkg/impersonation"
	"github.com/stratumhq/stratum/internal/pkg/middleware"
	"github.com/stratumhq/stratum/internal/pkg/rollout"
	"github.com/stratumhq/stratum/internal/pkg/session"
	"github.com/stratumhq/stratum/internal/pkg/stepup"
)

type HttpRouter struct {
}

// Shared services, built once at install time and reused by the API router.
var (
	stepUpService   *stepup.Service
	impersonationMg *impersonation.Manager
	auditRecorder   *audit.Recorder
	rolloutGuard    *rollout.Guard
	subscriptionGt  *middleware.SubscriptionGate
)

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	repos := repository.GetGlobalRepositories()

	stepUpService = stepup.NewService(stepup.NewRedisStore(cache.GetClient()), stepup.TOTPVerifier{})
	impersonationMg = impersonation.NewManager(
		repos.Impersonation,
		repos.User,
		env.GetEnv("IMPERSONATION_SECRET", "change-me-in-production"),
		impersonation.DefaultSessionTTL,
	)
	auditRecorder = audit.NewRecorder(repos.Audit)
	rolloutGuard = rollout.NewGuard(repos.Policy)
	subscriptionGt = middleware.NewSubscriptionGate(repos.Subscription, repos.Plan, repos.Entitlement)

	billingService := billing.NewServiceFromDB(database.GetDB())
	controllers.InitializeControllers(stepUpService, impersonationMg, auditRecorder, billingService)

	// Resolve the user context globally as the first middleware, so every
	// gate downstream reads the same typed context.
	resolver := middleware.NewUserContextResolver(repos, impersonationMg)
	app.Use(resolver.Handler())

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
