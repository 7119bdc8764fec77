package entitlements

import "strings"

type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// NormalizeTier maps arbitrary plan tier strings onto a known tier,
// defaulting to free.
func NormalizeTier(tier string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(tier))) {
	case TierStarter:
		return TierStarter
	case TierPro:
		return TierPro
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

// TierRank orders tiers for upgrade comparisons.
func TierRank(tier Tier) int {
	switch tier {
	case TierEnterprise:
		return 3
	case TierPro:
		return 2
	case TierStarter:
		return 1
	default:
		return 0
	}
}

// tierModules lists the modules included with each tier. Modules not listed
// for a tier may still be reachable through a separately billed add-on.
var tierModules = map[Tier][]string{
	TierFree:       {"invoicing", "contacts"},
	TierStarter:    {"invoicing", "contacts", "expenses", "reports"},
	TierPro:        {"invoicing", "contacts", "expenses", "reports", "hrms", "payroll", "legal", "logistics"},
	TierEnterprise: {"invoicing", "contacts", "expenses", "reports", "hrms", "payroll", "legal", "logistics", "hostel", "api_access"},
}

// tierFeatures lists named feature capabilities per tier.
var tierFeatures = map[Tier][]string{
	TierFree:       {},
	TierStarter:    {"custom_branding"},
	TierPro:        {"custom_branding", "bulk_export", "advanced_reports"},
	TierEnterprise: {"custom_branding", "bulk_export", "advanced_reports", "sso", "audit_export"},
}

// ModulesForTier returns the modules included with a tier.
func ModulesForTier(tier Tier) []string {
	return tierModules[tier]
}

// TierIncludesModule reports whether the module ships with the tier itself,
// without requiring an add-on entitlement.
func TierIncludesModule(tier Tier, module string) bool {
	for _, m := range tierModules[tier] {
		if m == module {
			return true
		}
	}
	return false
}

// TierHasFeature reports whether the named feature is part of the tier.
func TierHasFeature(tier Tier, feature string) bool {
	for _, f := range tierFeatures[tier] {
		if f == feature {
			return true
		}
	}
	return false
}
