package repository

import (
	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an audit log repository backed by GORM.
// The audit log is append-only; the interface exposes no mutation beyond Create.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *models.AuditLogEntry) error {
	return r.db.Create(entry).Error
}
