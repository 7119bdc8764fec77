package repository

import (
	"time"

	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
)

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a plan repository backed by GORM
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) GetByCode(code string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("code = ?", code).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetActiveByTenant(tenantID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("tenant_id = ? AND superseded_at IS NULL", tenantID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Supersede(subID uint, at time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND superseded_at IS NULL", subID).
		Update("superseded_at", at).Error
}

func (r *subscriptionRepository) UpdateStatus(subID uint, status string, currentPeriodEnd *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if currentPeriodEnd != nil {
		updates["current_period_end"] = currentPeriodEnd
	}
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", subID).
		Updates(updates).Error
}
