package controllers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/billing"
	"github.com/stratumhq/stratum/internal/pkg/impersonation"
	"github.com/stratumhq/stratum/internal/pkg/stepup"
)

// Package-level services shared by all controllers, wired once at router
// setup. Repositories come from the global factory per handler call.
var (
	stepUpService  *stepup.Service
	impManager     *impersonation.Manager
	auditRecorder  *audit.Recorder
	billingService *billing.Service
)

// InitializeControllers wires the shared services. Must run before any route
// is registered.
func InitializeControllers(su *stepup.Service, im *impersonation.Manager, ar *audit.Recorder, bs *billing.Service) {
	stepUpService = su
	impManager = im
	auditRecorder = ar
	billingService = bs
}

var validate = validator.New()

func errorResponse(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(fiber.Map{"code": code, "message": message})
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
