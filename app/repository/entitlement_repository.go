package repository

import (
	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type entitlementRepository struct {
	db *gorm.DB
}

// NewEntitlementRepository creates an add-on entitlement repository backed by GORM
func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &entitlementRepository{db: db}
}

func (r *entitlementRepository) GetByTenantAndAddon(tenantID uint, addonCode string) (*models.AddonEntitlement, error) {
	var rec models.AddonEntitlement
	err := r.db.
		Where("tenant_id = ? AND addon_code = ?", tenantID, addonCode).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *entitlementRepository) ListByTenant(tenantID uint) ([]models.AddonEntitlement, error) {
	var recs []models.AddonEntitlement
	err := r.db.Where("tenant_id = ?", tenantID).Find(&recs).Error
	return recs, err
}

// MapByTenant loads the tenant's entitlement records keyed by addon code, the
// snapshot shape the evaluator consumes.
func (r *entitlementRepository) MapByTenant(tenantID uint) (map[string]*models.AddonEntitlement, error) {
	recs, err := r.ListByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*models.AddonEntitlement, len(recs))
	for i := range recs {
		m[recs[i].AddonCode] = &recs[i]
	}
	return m, nil
}

func (r *entitlementRepository) Save(rec *models.AddonEntitlement) error {
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

	// Ensure ID is populated after upsert.
	return r.db.Where("tenant_id = ? AND addon_code = ?", rec.TenantID, rec.AddonCode).
		First(rec).Error
}
