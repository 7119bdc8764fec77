package repository

import (
	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a country rollout policy repository backed by GORM
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) GetByCountry(countryCode string) (*models.CountryRolloutPolicy, error) {
	var policy models.CountryRolloutPolicy
	err := r.db.Where("country_code = ?", countryCode).First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) Upsert(policy *models.CountryRolloutPolicy) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "country_code"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_active",
			"enabled_modules",
			"enabled_features",
			"updated_at",
		}),
	}).Create(policy).Error; err != nil {
		return err
	}

	return r.db.Where("country_code = ?", policy.CountryCode).First(policy).Error
}
