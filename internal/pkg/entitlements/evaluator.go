package entitlements

import (
	"time"

	"github.com/stratumhq/stratum/app/models"
)

// Reason is a machine-readable denial reason surfaced to gates and UI.
type Reason string

const (
	ReasonNotInstalled      Reason = "ADDON_NOT_INSTALLED"
	ReasonTrialExpired      Reason = "ADDON_TRIAL_EXPIRED"
	ReasonExpired           Reason = "ADDON_EXPIRED"
	ReasonCancelled         Reason = "ADDON_CANCELLED"
	ReasonDependencyMissing Reason = "ADDON_DEPENDENCY_MISSING"
	ReasonDependencyExpired Reason = "ADDON_DEPENDENCY_EXPIRED"
)

// Decision is the outcome of an entitlement evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allowed = Decision{Allowed: true}

// addonDependencies maps dependency-gated add-ons to the set of add-ons of
// which at least one must be entitled. Add-ons listed here have no entitlement
// record of their own.
var addonDependencies = map[string][]string{
	"employee_directory": {"hrms", "payroll"},
	"leave_calendar":     {"hrms"},
}

// Dependencies returns the OR-set of add-ons required by addonCode, or nil if
// the add-on is directly billed.
func Dependencies(addonCode string) []string {
	return addonDependencies[addonCode]
}

// IsEntitled reports whether the record grants use of its add-on at now.
// It is a pure function over the loaded snapshot; a nil record is never
// entitled. Validity ends are inclusive: the end instant itself still counts.
func IsEntitled(rec *models.AddonEntitlement, now time.Time) bool {
	return Evaluate(rec, now).Allowed
}

// Evaluate computes the entitlement decision for a single record at now.
func Evaluate(rec *models.AddonEntitlement, now time.Time) Decision {
	if rec == nil {
		return Decision{Reason: ReasonNotInstalled}
	}

	switch rec.Status {
	case models.AddonStatusActive, models.AddonStatusTrial:
		// fall through to the validity window
	case models.AddonStatusCancelled:
		return Decision{Reason: ReasonCancelled}
	default:
		// Disabled add-ons are installed but switched off; to callers they
		// behave like a cancellation.
		return Decision{Reason: ReasonCancelled}
	}

	switch rec.SubscriptionStatus {
	case models.SubscriptionStatusTrialing:
		if rec.TrialEndsAt == nil {
			// Trialing without a trial end is a data integrity problem.
			return Decision{Reason: ReasonTrialExpired}
		}
		if now.After(*rec.TrialEndsAt) {
			return Decision{Reason: ReasonTrialExpired}
		}
		return allowed
	case models.SubscriptionStatusActive:
		// No paid-until means evergreen.
		if rec.PaidUntil != nil && now.After(*rec.PaidUntil) {
			return Decision{Reason: ReasonExpired}
		}
		return allowed
	case models.SubscriptionStatusGracePeriod:
		if rec.GraceUntil != nil && !now.After(*rec.GraceUntil) {
			return allowed
		}
		return Decision{Reason: ReasonExpired}
	case models.SubscriptionStatusCancelled:
		return Decision{Reason: ReasonCancelled}
	default:
		// past_due outside grace, suspended, anything unknown
		return Decision{Reason: ReasonExpired}
	}
}

// EvaluateWithDependencies resolves addonCode against the tenant's loaded
// records. Dependency-gated add-ons are entitled iff at least one dependency
// is independently entitled; the denial reason distinguishes dependencies that
// were never installed from ones that lapsed.
func EvaluateWithDependencies(addonCode string, records map[string]*models.AddonEntitlement, now time.Time) Decision {
	deps := Dependencies(addonCode)
	if len(deps) == 0 {
		return Evaluate(records[addonCode], now)
	}

	anyInstalled := false
	for _, dep := range deps {
		rec := records[dep]
		if rec != nil {
			anyInstalled = true
		}
		if Evaluate(rec, now).Allowed {
			return allowed
		}
	}
	if anyInstalled {
		return Decision{Reason: ReasonDependencyExpired}
	}
	return Decision{Reason: ReasonDependencyMissing}
}
