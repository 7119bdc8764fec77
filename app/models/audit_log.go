package models

import "time"

const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFail    = "fail"
)

// AuditLogEntry is an append-only record of a security-relevant action.
// Entries are immutable once written; there is no update or delete path.
type AuditLogEntry struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TenantID        uint      `gorm:"not null;index" json:"tenant_id"`
	ActorUserID     uint      `gorm:"not null;index" json:"actor_user_id"`
	Action          string    `gorm:"type:varchar(100);not null;index" json:"action"`
	TargetType      string    `gorm:"type:varchar(100);default:''" json:"target_type,omitempty"`
	TargetID        string    `gorm:"type:varchar(100);default:''" json:"target_id,omitempty"`
	Outcome         string    `gorm:"type:varchar(16);not null" json:"outcome"`
	FailureReason   string    `gorm:"type:text;default:''" json:"failure_reason,omitempty"`
	BeforeValue     string    `gorm:"type:text;default:''" json:"before_value,omitempty"`
	AfterValue      string    `gorm:"type:text;default:''" json:"after_value,omitempty"`
	IsImpersonating bool      `gorm:"default:false" json:"is_impersonating"`
	RealUserID      *uint     `gorm:"default:null" json:"real_user_id,omitempty"`
	IPAddress       string    `gorm:"type:varchar(45);default:''" json:"ip_address"`
	UserAgent       string    `gorm:"type:varchar(500);default:''" json:"user_agent"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
