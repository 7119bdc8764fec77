package rollout

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
)

// Denial codes surfaced by the rollout guard.
const (
	CodeCountryNotActive    = "COUNTRY_NOT_ACTIVE"
	CodeModuleNotAvailable  = "MODULE_NOT_AVAILABLE"
	CodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
)

// PolicyStore is the read surface the guard needs.
type PolicyStore interface {
	GetByCountry(countryCode string) (*models.CountryRolloutPolicy, error)
}

// Decision is the outcome of a rollout predicate.
type Decision struct {
	Allowed bool
	Code    string
}

// Guard evaluates country rollout policy. A missing policy row blocks
// (fail-closed), while infrastructure errors during lookup let the request
// through (fail-open), unlike the entitlement evaluator which always fails
// closed.
type Guard struct {
	store PolicyStore
}

// NewGuard creates a rollout guard over the given policy store.
func NewGuard(store PolicyStore) *Guard {
	return &Guard{store: store}
}

// CountryActive checks whether the country is enabled at all.
func (g *Guard) CountryActive(countryCode string) Decision {
	policy, d := g.load(countryCode)
	if policy == nil {
		return d
	}
	if !policy.IsActive {
		return Decision{Code: CodeCountryNotActive}
	}
	return Decision{Allowed: true}
}

// ModuleAllowed checks whether the module is rolled out to the country.
func (g *Guard) ModuleAllowed(countryCode, module string) Decision {
	policy, d := g.load(countryCode)
	if policy == nil {
		return d
	}
	if !policy.IsActive {
		return Decision{Code: CodeCountryNotActive}
	}
	if !policy.AllowsModule(module) {
		return Decision{Code: CodeModuleNotAvailable}
	}
	return Decision{Allowed: true}
}

// FeatureEnabled checks whether the named feature is rolled out to the country.
func (g *Guard) FeatureEnabled(countryCode, feature string) Decision {
	policy, d := g.load(countryCode)
	if policy == nil {
		return d
	}
	if !policy.IsActive {
		return Decision{Code: CodeCountryNotActive}
	}
	if !policy.AllowsFeature(feature) {
		return Decision{Code: CodeFeatureNotAvailable}
	}
	return Decision{Allowed: true}
}

// load resolves the policy row. Second return value is the decision to use
// when the policy is nil: deny for a missing row, allow for a lookup error.
func (g *Guard) load(countryCode string) (*models.CountryRolloutPolicy, Decision) {
	policy, err := g.store.GetByCountry(countryCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Decision{Code: CodeCountryNotActive}
		}
		log.Printf("rollout guard: policy lookup for %q failed, allowing request: %v", countryCode, err)
		return nil, Decision{Allowed: true}
	}
	return policy, Decision{}
}
