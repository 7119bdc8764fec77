package billing

import (
	"time"

	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetPlanByID(id uint) (*models.Plan, error)
	GetPlanByCode(code string) (*models.Plan, error)
	GetActiveSubscription(tenantID uint) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SupersedeSubscription(subID uint, at time.Time) error
	UpdateSubscriptionStatus(subID uint, status string, currentPeriodEnd *time.Time) error
	GetEntitlement(tenantID uint, addonCode string) (*models.AddonEntitlement, error)
	ListEntitlements(tenantID uint) ([]models.AddonEntitlement, error)
	SaveEntitlement(rec *models.AddonEntitlement) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlanByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetPlanByCode(code string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("code = ? AND is_active = ?", code, true).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetActiveSubscription(tenantID uint) (*models.Subscription, error) {
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

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SupersedeSubscription(subID uint, at time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND superseded_at IS NULL", subID).
		Update("superseded_at", at).Error
}

func (r *gormRepository) UpdateSubscriptionStatus(subID uint, status string, currentPeriodEnd *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if currentPeriodEnd != nil {
		updates["current_period_end"] = currentPeriodEnd
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", subID).Updates(updates).Error
}

func (r *gormRepository) GetEntitlement(tenantID uint, addonCode string) (*models.AddonEntitlement, error) {
	var rec models.AddonEntitlement
	err := r.db.Where("tenant_id = ? AND addon_code = ?", tenantID, addonCode).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) ListEntitlements(tenantID uint) ([]models.AddonEntitlement, error) {
	var recs []models.AddonEntitlement
	err := r.db.Where("tenant_id = ?", tenantID).Find(&recs).Error
	return recs, err
}

func (r *gormRepository) SaveEntitlement(rec *models.AddonEntitlement) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "addon_code"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"subscription_status",
			"trial_ends_at",
			"paid_until",
			"grace_until",
			"updated_at",
		}),
	}).Create(rec).Error; err != nil {
		return err
	}

	return r.db.Where("tenant_id = ? AND addon_code = ?", rec.TenantID, rec.AddonCode).
		First(rec).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
