package repository

import (
	"time"

	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
)

type impersonationRepository struct {
	db *gorm.DB
}

// NewImpersonationRepository creates an impersonation session repository backed by GORM
func NewImpersonationRepository(db *gorm.DB) ImpersonationRepository {
	return &impersonationRepository{db: db}
}

func (r *impersonationRepository) Create(sess *models.ImpersonationSession) error {
	return r.db.Create(sess).Error
}

func (r *impersonationRepository) GetBySessionID(sessionID string) (*models.ImpersonationSession, error) {
	var sess models.ImpersonationSession
	if err := r.db.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *impersonationRepository) GetActiveByActingUser(actingUserID uint, now time.Time) (*models.ImpersonationSession, error) {
	var sess models.ImpersonationSession
	err := r.db.
		Where("acting_user_id = ? AND revoked_at IS NULL AND expires_at >= ?", actingUserID, now).
		Order("created_at DESC").
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *impersonationRepository) Revoke(sessionID string, at time.Time) error {
	return r.db.Model(&models.ImpersonationSession{}).
		Where("session_id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", at).Error
}
