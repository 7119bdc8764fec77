package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type addonView struct {
	AddonCode          string     `json:"addon_code"`
	Status             string     `json:"status"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	PaidUntil          *time.Time `json:"paid_until,omitempty"`
	GraceUntil         *time.Time `json:"grace_until,omitempty"`
	Entitled           bool       `json:"entitled"`
	Reason             string     `json:"reason,omitempty"`
}

// HandleListEntitlements returns the tenant's add-on records with their
// evaluated state at request time, so clients render install state and
// denial reasons from one call.
func HandleListEntitlements(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	now := time.Now()

	records, err := repository.GetGlobalFactory().GetEntitlementRepository().ListByTenant(uc.TenantID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not load entitlements")
	}

	views := make([]addonView, 0, len(records))
	for i := range records {
		rec := &records[i]
		decision := entitlements.Evaluate(rec, now)
		view := addonView{
			AddonCode:          rec.AddonCode,
			Status:             rec.Status,
			SubscriptionStatus: rec.SubscriptionStatus,
			TrialEndsAt:        rec.TrialEndsAt,
			PaidUntil:          rec.PaidUntil,
			GraceUntil:         rec.GraceUntil,
			Entitled:           decision.Allowed,
		}
		if !decision.Allowed {
			view.Reason = string(decision.Reason)
		}
		views = append(views, view)
	}

	return c.JSON(fiber.Map{"entitlements": views})
}

// HandleCheckEntitlement evaluates one add-on code for the tenant, resolving
// dependency-gated add-ons against the full snapshot.
func HandleCheckEntitlement(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	addonCode := strings.TrimSpace(c.Params("code"))
	if addonCode == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "addon code missing")
	}

	records, err := repository.GetGlobalFactory().GetEntitlementRepository().MapByTenant(uc.TenantID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not load entitlements")
	}

	decision := entitlements.EvaluateWithDependencies(addonCode, records, time.Now())
	resp := fiber.Map{"addon_code": addonCode, "entitled": decision.Allowed}
	if !decision.Allowed {
		resp["reason"] = string(decision.Reason)
	}
	return c.JSON(resp)
}

type installAddonRequest struct {
	AddonCode string `json:"addon_code"`
	TrialDays int    `json:"trial_days"`
}

// HandleInstallAddon installs an add-on for the tenant, starting it in trial.
func HandleInstallAddon(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req installAddonRequest
	if err := c.BodyParser(&req); err != nil || req.AddonCode == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "addon_code is required")
	}

	rec, err := billingService.InstallAddon(c.Context(), uc.TenantID, req.AddonCode, req.TrialDays)
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "INSTALL_FAILED", err.Error())
	}

	auditRecorder.Record(audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "addon.install",
		TargetType:      "addon",
		TargetID:        rec.AddonCode,
		Outcome:         models.AuditOutcomeSuccess,
		AfterValue:      rec,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// HandleCancelAddon cancels an installed add-on. The record is kept for
// dependency history, just marked cancelled.
func HandleCancelAddon(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	addonCode := strings.TrimSpace(c.Params("code"))
	if addonCode == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "addon code missing")
	}

	// A missing record means no prior state to snapshot; any other read
	// error only costs the before image, not the cancellation.
	before, err := repository.GetGlobalFactory().GetEntitlementRepository().GetByTenantAndAddon(uc.TenantID, addonCode)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("addon cancel: before snapshot for tenant %d addon %s failed: %v", uc.TenantID, addonCode, err)
		}
		before = nil
	}

	rec, err := billingService.CancelAddon(c.Context(), uc.TenantID, addonCode)
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "CANCEL_FAILED", err.Error())
	}

	entry := audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "addon.cancel",
		TargetType:      "addon",
		TargetID:        addonCode,
		Outcome:         models.AuditOutcomeSuccess,
		AfterValue:      rec,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	}
	if before != nil {
		entry.BeforeValue = before
	}
	auditRecorder.Record(entry)

	return c.JSON(rec)
}
