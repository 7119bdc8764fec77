package models

import "time"

// ImpersonationSession records an admin acting as another user. The row is the
// authoritative session state; the bearer token handed to the client only
// references it. Expiry is lazy: an expired row is treated as exited on the
// next observation.
type ImpersonationSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SessionID    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	TenantID     uint       `gorm:"not null;index" json:"tenant_id"`
	ActingUserID uint       `gorm:"not null;index" json:"acting_user_id"`
	TargetUserID uint       `gorm:"not null;index" json:"target_user_id"`
	ReasonCode   string     `gorm:"type:varchar(100);default:''" json:"reason_code"`
	ExpiresAt    time.Time  `gorm:"type:timestamp;not null" json:"expires_at"`
	RevokedAt    *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the session is live at now.
func (s *ImpersonationSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && !now.After(s.ExpiresAt)
}
