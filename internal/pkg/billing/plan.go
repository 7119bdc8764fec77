package billing

import (
	"strings"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
)

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// isEntitlingStatus reports whether a subscription status still grants access
// to plan capabilities. past_due is not entitling at the subscription level;
// lapsed payment only survives through an explicit grace window.
func isEntitlingStatus(status string) bool {
	switch normalizeStatus(status) {
	case models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusGracePeriod:
		return true
	default:
		return false
	}
}

// tierForPlan resolves a plan row to its effective tier, free when the plan is
// inactive or unknown.
func tierForPlan(plan *models.Plan) entitlements.Tier {
	if plan == nil || !plan.IsActive {
		return entitlements.TierFree
	}
	return entitlements.NormalizeTier(plan.Tier)
}
