package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/billing"
	"github.com/stratumhq/stratum/internal/pkg/env"
	"github.com/stratumhq/stratum/internal/pkg/session"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type planChangeRequest struct {
	PlanCode string `json:"plan_code"`
}

// HandleSubscribe starts a trial subscription on the chosen plan for tenants
// without one.
func HandleSubscribe(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req planChangeRequest
	if err := c.BodyParser(&req); err != nil || req.PlanCode == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "plan_code is required")
	}

	sub, err := billingService.StartSubscription(c.Context(), uc.TenantID, req.PlanCode)
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "SUBSCRIBE_FAILED", err.Error())
	}

	// Drop the cached tier so the next request resolves the new plan.
	_ = session.SetSessionValue(c, usercontext.KeyTenantTier, "")

	auditRecorder.Record(audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "subscription.start",
		TargetType:      "subscription",
		TargetID:        itoa(sub.ID),
		Outcome:         models.AuditOutcomeSuccess,
		AfterValue:      sub,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.Status(fiber.StatusCreated).JSON(sub)
}

// HandleChangePlan supersedes the tenant's live subscription with one on the
// new plan. The old row is kept with its superseded timestamp so billing
// history survives plan changes.
func HandleChangePlan(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req planChangeRequest
	if err := c.BodyParser(&req); err != nil || req.PlanCode == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "plan_code is required")
	}

	sub, err := billingService.ChangePlan(c.Context(), uc.TenantID, req.PlanCode)
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "PLAN_CHANGE_FAILED", err.Error())
	}

	_ = session.SetSessionValue(c, usercontext.KeyTenantTier, "")

	auditRecorder.Record(audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "subscription.change_plan",
		TargetType:      "subscription",
		TargetID:        itoa(sub.ID),
		Outcome:         models.AuditOutcomeSuccess,
		AfterValue:      sub,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.JSON(sub)
}

type webhookRequest struct {
	Provider        string     `json:"provider"`
	ProviderEventID string     `json:"provider_event_id"`
	EventType       string     `json:"event_type"`
	TenantID        uint       `json:"tenant_id"`
	Status          string     `json:"status"`
	PeriodEnd       *time.Time `json:"period_end"`
	GraceDays       int        `json:"grace_days"`
}

// HandleBillingWebhook ingests a payment provider event. The HMAC signature
// over the raw body is verified before anything is persisted; events are then
// deduplicated on (provider, event id), and replays answer 200 without
// reprocessing so providers stop retrying.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	sigValid := billing.VerifyWebhookSignature(payload,
		c.Get("X-Webhook-Signature"),
		env.GetEnv("BILLING_WEBHOOK_SECRET", ""))
	if !sigValid {
		return errorResponse(c, fiber.StatusUnauthorized, "WEBHOOK_SIGNATURE_INVALID", "Webhook signature verification failed")
	}

	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid webhook payload")
	}

	created, event, err := billingService.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        req.Provider,
		ProviderEventID: req.ProviderEventID,
		EventType:       req.EventType,
		PayloadJSON:     string(payload),
		SignatureValid:  sigValid,
	})
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "WEBHOOK_REJECTED", err.Error())
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	processErr := billingService.ApplyPaymentEvent(c.Context(), billing.PaymentEvent{
		TenantID:  req.TenantID,
		Status:    req.Status,
		PeriodEnd: req.PeriodEnd,
		GraceDays: req.GraceDays,
	})
	_ = billingService.MarkWebhookProcessed(c.Context(), event.ID, processErr)
	if processErr != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "WEBHOOK_PROCESSING_FAILED", processErr.Error())
	}

	return c.JSON(fiber.Map{"received": true})
}
