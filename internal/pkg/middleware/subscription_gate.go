package middleware

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/constants"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// GateOptions configures a single Require check.
type GateOptions struct {
	// AllowTrial lets trial-expired tenants through, for routes like the
	// billing page itself that an expired tenant must still reach.
	AllowTrial bool
	// MinTier, when set, requires the plan tier to rank at or above it.
	MinTier entitlements.Tier
	// Module, when set, requires the module via tier or add-on entitlement.
	Module string
	// Feature, when set, requires the named feature on the tier.
	Feature string
}

// SubscriptionContext is the resolved billing state a passing gate stores in
// Locals for downstream handlers and UI personalization.
type SubscriptionContext struct {
	Subscription *models.Subscription `json:"subscription"`
	Plan         *models.Plan         `json:"plan"`
	Tier         entitlements.Tier    `json:"tier"`
}

// SubscriptionGate maps a tenant's active subscription and plan tier onto
// allowed tiers, modules and features. Billing problems deny with 402, policy
// mismatches with 403, and a dangling plan reference with 500 since that is
// referential corruption rather than a user-facing denial.
type SubscriptionGate struct {
	subs  repository.SubscriptionRepository
	plans repository.PlanRepository
	ents  repository.EntitlementRepository

	billingURL string
	upgradeURL string
	now        func() time.Time
}

// NewSubscriptionGate creates a gate over the given repositories.
func NewSubscriptionGate(subs repository.SubscriptionRepository, plans repository.PlanRepository, ents repository.EntitlementRepository) *SubscriptionGate {
	return &SubscriptionGate{
		subs:       subs,
		plans:      plans,
		ents:       ents,
		billingURL: constants.BillingURL,
		upgradeURL: constants.UpgradeURL,
		now:        time.Now,
	}
}

// Require returns a middleware that denies the request unless the tenant's
// subscription satisfies the options. Checks run in a fixed order so a tenant
// with several problems always sees the most actionable one first.
func (g *SubscriptionGate) Require(opts GateOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return jsonError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required", nil)
		}

		now := g.now()

		sub, err := g.subs.GetActiveByTenant(uc.TenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return jsonError(c, fiber.StatusPaymentRequired, "NO_SUBSCRIPTION", "No active subscription found", fiber.Map{
					"billing_url": g.billingURL,
				})
			}
			return jsonError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not resolve subscription", nil)
		}

		if !opts.AllowTrial && sub.IsTrialExpired(now) {
			return jsonError(c, fiber.StatusPaymentRequired, "TRIAL_EXPIRED", "Your trial has ended", fiber.Map{
				"billing_url": g.billingURL,
			})
		}

		if sub.Status == models.SubscriptionStatusPastDue {
			return jsonError(c, fiber.StatusPaymentRequired, "PAYMENT_PAST_DUE", "Payment is past due", fiber.Map{
				"billing_url": g.billingURL,
			})
		}

		if sub.IsBlockedForBilling() {
			return jsonError(c, fiber.StatusPaymentRequired, "SUBSCRIPTION_INACTIVE", "Subscription is not active", fiber.Map{
				"billing_url": g.billingURL,
			})
		}

		plan, err := g.plans.GetByID(sub.PlanID)
		if err != nil {
			log.Printf("subscription gate: plan %d missing for tenant %d subscription %d: %v", sub.PlanID, uc.TenantID, sub.ID, err)
			return jsonError(c, fiber.StatusInternalServerError, "INVALID_PLAN", "Subscription plan could not be resolved", nil)
		}
		tier := entitlements.NormalizeTier(plan.Tier)

		if opts.MinTier != "" && entitlements.TierRank(tier) < entitlements.TierRank(opts.MinTier) {
			return jsonError(c, fiber.StatusForbidden, "TIER_UPGRADE_REQUIRED", "Your plan does not include this capability", fiber.Map{
				"current_tier":  string(tier),
				"required_tier": string(opts.MinTier),
				"upgrade_url":   g.upgradeURL,
			})
		}

		if opts.Module != "" && !entitlements.TierIncludesModule(tier, opts.Module) {
			records, err := g.ents.MapByTenant(uc.TenantID)
			if err != nil {
				return jsonError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not resolve add-on entitlements", nil)
			}
			decision := entitlements.EvaluateWithDependencies(opts.Module, records, now)
			if !decision.Allowed {
				return jsonError(c, fiber.StatusForbidden, "MODULE_NOT_AVAILABLE", "This module is not available on your plan", fiber.Map{
					"module":       opts.Module,
					"reason":       string(decision.Reason),
					"current_tier": string(tier),
					"upgrade_url":  g.upgradeURL,
				})
			}
		}

		if opts.Feature != "" && !entitlements.TierHasFeature(tier, opts.Feature) {
			return jsonError(c, fiber.StatusForbidden, "FEATURE_NOT_AVAILABLE", "This feature is not available on your plan", fiber.Map{
				"feature":      opts.Feature,
				"current_tier": string(tier),
				"upgrade_url":  g.upgradeURL,
			})
		}

		c.Locals(usercontext.SubscriptionKey, SubscriptionContext{
			Subscription: sub,
			Plan:         plan,
			Tier:         tier,
		})
		return c.Next()
	}
}

// Annotate resolves subscription, plan and tier into Locals without ever
// denying, for routes that only personalize their UI on billing state.
func (g *SubscriptionGate) Annotate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return c.Next()
		}

		sub, err := g.subs.GetActiveByTenant(uc.TenantID)
		if err != nil {
			return c.Next()
		}
		plan, err := g.plans.GetByID(sub.PlanID)
		if err != nil {
			return c.Next()
		}

		c.Locals(usercontext.SubscriptionKey, SubscriptionContext{
			Subscription: sub,
			Plan:         plan,
			Tier:         entitlements.NormalizeTier(plan.Tier),
		})
		return c.Next()
	}
}

// GetSubscriptionContext reads the gate's resolved billing state, if any.
func GetSubscriptionContext(c *fiber.Ctx) (SubscriptionContext, bool) {
	if v := c.Locals(usercontext.SubscriptionKey); v != nil {
		if sc, ok := v.(SubscriptionContext); ok {
			return sc, true
		}
	}
	return SubscriptionContext{}, false
}
