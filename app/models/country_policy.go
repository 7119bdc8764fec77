package models

import "time"

// CountryRolloutPolicy gates module/feature availability per country,
// independent of billing tier. The absence of a row for a country blocks all
// gated routes from that country (fail-closed).
type CountryRolloutPolicy struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CountryCode     string          `gorm:"type:varchar(2);uniqueIndex;not null" json:"country_code"`
	IsActive        bool            `gorm:"default:false;index" json:"is_active"`
	EnabledModules  []string        `gorm:"serializer:json;type:text" json:"enabled_modules"`
	EnabledFeatures map[string]bool `gorm:"serializer:json;type:text" json:"enabled_features"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AllowsModule reports whether the module may be used under this policy.
// An empty module list means unrestricted.
func (p *CountryRolloutPolicy) AllowsModule(module string) bool {
	if !p.IsActive {
		return false
	}
	if len(p.EnabledModules) == 0 {
		return true
	}
	for _, m := range p.EnabledModules {
		if m == module {
			return true
		}
	}
	return false
}

// AllowsFeature reports whether the named feature is enabled. Features must be
// explicitly set to true; absence denies.
func (p *CountryRolloutPolicy) AllowsFeature(feature string) bool {
	if !p.IsActive {
		return false
	}
	return p.EnabledFeatures[feature]
}
