package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type policyUpsertRequest struct {
	IsActive        bool            `json:"is_active"`
	EnabledModules  []string        `json:"enabled_modules"`
	EnabledFeatures map[string]bool `json:"enabled_features"`
}

// HandleAdminGetPolicy returns the rollout policy for one country, or 404
// when none exists yet.
func HandleAdminGetPolicy(c *fiber.Ctx) error {
	code := normalizeCountry(c.Params("code"))
	if code == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "country code missing")
	}

	policy, err := repository.GetGlobalFactory().GetPolicyRepository().GetByCountry(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "POLICY_NOT_FOUND", "No rollout policy for this country")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not load policy")
	}
	return c.JSON(policy)
}

// HandleAdminUpsertPolicy creates or replaces a country's rollout policy.
// The before snapshot goes into the audit entry so policy changes can be
// reconstructed from the trail alone.
func HandleAdminUpsertPolicy(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	code := normalizeCountry(c.Params("code"))
	if len(code) != 2 {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "country code must be two letters")
	}

	var req policyUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}

	policyRepo := repository.GetGlobalFactory().GetPolicyRepository()

	// No row yet means a first-time policy with no before image. Any other
	// read error only costs the snapshot, not the upsert.
	before, err := policyRepo.GetByCountry(code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("rollout policy upsert: before snapshot for %s failed: %v", code, err)
		}
		before = nil
	}

	policy := &models.CountryRolloutPolicy{
		CountryCode:     code,
		IsActive:        req.IsActive,
		EnabledModules:  req.EnabledModules,
		EnabledFeatures: req.EnabledFeatures,
	}
	if err := policyRepo.Upsert(policy); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not save policy")
	}

	entry := audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "rollout_policy.upsert",
		TargetType:      "country_policy",
		TargetID:        code,
		Outcome:         models.AuditOutcomeSuccess,
		AfterValue:      policy,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	}
	if before != nil {
		entry.BeforeValue = before
	}
	auditRecorder.Record(entry)

	return c.JSON(policy)
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
