package models

import "time"

const (
	AddonStatusActive    = "active"
	AddonStatusTrial     = "trial"
	AddonStatusDisabled  = "disabled"
	AddonStatusCancelled = "cancelled"
)

// AddonEntitlement is the persisted entitlement record for one (tenant, addon)
// pair. Rows are created on install and mutated on trial expiry, payment events
// and cancellation. They are never hard-deleted; cancelled rows stay for audit
// and history.
type AddonEntitlement struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TenantID           uint       `gorm:"not null;index:ux_addon_entitlements_tenant_addon,unique,priority:1" json:"tenant_id"`
	AddonCode          string     `gorm:"type:varchar(100);not null;index:ux_addon_entitlements_tenant_addon,unique,priority:2" json:"addon_code"`
	Status             string     `gorm:"type:varchar(32);not null;default:'trial';index" json:"status"`
	SubscriptionStatus string     `gorm:"type:varchar(32);not null;default:'trialing'" json:"subscription_status"`
	InstalledAt        time.Time  `gorm:"type:timestamp;not null" json:"installed_at"`
	TrialEndsAt        *time.Time `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	PaidUntil          *time.Time `gorm:"type:timestamp;default:null" json:"paid_until,omitempty"`
	GraceUntil         *time.Time `gorm:"type:timestamp;default:null" json:"grace_until,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
