package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
)

const defaultTrialDays = 14

// Service provides subscription and add-on lifecycle operations.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// StartSubscription creates the initial trialing subscription for a tenant.
func (s *Service) StartSubscription(ctx context.Context, tenantID uint, planCode string) (*models.Subscription, error) {
	_ = ctx
	if tenantID == 0 || strings.TrimSpace(planCode) == "" {
		return nil, errors.New("tenant_id and plan_code are required")
	}

	plan, err := s.repo.GetPlanByCode(planCode)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetActiveSubscription(tenantID); err == nil && existing != nil {
		return nil, fmt.Errorf("tenant %d already has an active subscription", tenantID)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	trialEnd := time.Now().AddDate(0, 0, defaultTrialDays)
	sub := &models.Subscription{
		TenantID:    tenantID,
		PlanID:      plan.ID,
		Status:      models.SubscriptionStatusTrialing,
		TrialEndsAt: &trialEnd,
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ChangePlan supersedes the tenant's live subscription and creates a new one
// on the target plan. The old row is kept for history, never mutated in place.
func (s *Service) ChangePlan(ctx context.Context, tenantID uint, planCode string) (*models.Subscription, error) {
	_ = ctx
	if tenantID == 0 || strings.TrimSpace(planCode) == "" {
		return nil, errors.New("tenant_id and plan_code are required")
	}

	plan, err := s.repo.GetPlanByCode(planCode)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetActiveSubscription(tenantID)
	if err != nil {
		return nil, err
	}
	if current.PlanID == plan.ID {
		return current, nil
	}

	now := time.Now()
	if err := s.repo.SupersedeSubscription(current.ID, now); err != nil {
		return nil, err
	}

	next := &models.Subscription{
		TenantID:         tenantID,
		PlanID:           plan.ID,
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: current.CurrentPeriodEnd,
	}
	if err := s.repo.CreateSubscription(next); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyPaymentEvent syncs a normalized provider payment event into the live
// subscription and the tenant's add-on entitlement windows.
func (s *Service) ApplyPaymentEvent(ctx context.Context, in PaymentEvent) error {
	_ = ctx
	if in.TenantID == 0 {
		return errors.New("tenant_id is required")
	}
	status := normalizeStatus(in.Status)
	if status == "" {
		return errors.New("status is required")
	}

	sub, err := s.repo.GetActiveSubscription(in.TenantID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSubscriptionStatus(sub.ID, status, in.PeriodEnd); err != nil {
		return err
	}

	recs, err := s.repo.ListEntitlements(in.TenantID)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range recs {
		rec := &recs[i]
		if rec.Status == models.AddonStatusCancelled || rec.Status == models.AddonStatusDisabled {
			continue
		}
		rec.SubscriptionStatus = status
		switch status {
		case models.SubscriptionStatusActive:
			rec.Status = models.AddonStatusActive
			rec.PaidUntil = in.PeriodEnd
			rec.GraceUntil = nil
		case models.SubscriptionStatusGracePeriod:
			days := in.GraceDays
			if days <= 0 {
				days = 7
			}
			graceUntil := now.AddDate(0, 0, days)
			// Grace strictly extends the paid validity, never shortens it.
			if rec.PaidUntil == nil || graceUntil.After(*rec.PaidUntil) {
				rec.GraceUntil = &graceUntil
			} else {
				rec.GraceUntil = rec.PaidUntil
			}
		}
		if err := s.repo.SaveEntitlement(rec); err != nil {
			return err
		}
	}
	return nil
}

// InstallAddon creates the entitlement record for a directly billed add-on,
// starting it as a trial.
func (s *Service) InstallAddon(ctx context.Context, tenantID uint, addonCode string, trialDays int) (*models.AddonEntitlement, error) {
	_ = ctx
	addonCode = strings.ToLower(strings.TrimSpace(addonCode))
	if tenantID == 0 || addonCode == "" {
		return nil, errors.New("tenant_id and addon_code are required")
	}
	if len(entitlements.Dependencies(addonCode)) > 0 {
		return nil, fmt.Errorf("addon %q is dependency-gated and not directly installable", addonCode)
	}

	if existing, err := s.repo.GetEntitlement(tenantID, addonCode); err == nil {
		// Reinstall of a cancelled/disabled add-on reactivates the same row.
		if existing.Status == models.AddonStatusActive || existing.Status == models.AddonStatusTrial {
			return existing, nil
		}
		existing.Status = models.AddonStatusActive
		existing.SubscriptionStatus = models.SubscriptionStatusActive
		if err := s.repo.SaveEntitlement(existing); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if trialDays <= 0 {
		trialDays = defaultTrialDays
	}
	now := time.Now()
	trialEnd := now.AddDate(0, 0, trialDays)
	rec := &models.AddonEntitlement{
		TenantID:           tenantID,
		AddonCode:          addonCode,
		Status:             models.AddonStatusTrial,
		SubscriptionStatus: models.SubscriptionStatusTrialing,
		InstalledAt:        now,
		TrialEndsAt:        &trialEnd,
	}
	if err := s.repo.SaveEntitlement(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CancelAddon marks the entitlement cancelled. The record is retained for
// audit and history, never deleted.
func (s *Service) CancelAddon(ctx context.Context, tenantID uint, addonCode string) (*models.AddonEntitlement, error) {
	_ = ctx
	rec, err := s.repo.GetEntitlement(tenantID, addonCode)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.AddonStatusCancelled {
		return rec, nil
	}
	rec.Status = models.AddonStatusCancelled
	rec.SubscriptionStatus = models.SubscriptionStatusCancelled
	if err := s.repo.SaveEntitlement(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveTier computes the tenant's effective tier from the live subscription.
// Tenants without an entitling subscription resolve to free.
func (s *Service) ResolveTier(ctx context.Context, tenantID uint) (entitlements.Tier, error) {
	_ = ctx
	sub, err := s.repo.GetActiveSubscription(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entitlements.TierFree, nil
		}
		return entitlements.TierFree, err
	}
	if !isEntitlingStatus(sub.Status) {
		return entitlements.TierFree, nil
	}
	plan, err := s.repo.GetPlanByID(sub.PlanID)
	if err != nil {
		return entitlements.TierFree, err
	}
	return tierForPlan(plan), nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
