package models

import "time"

// Plan is a sellable subscription tier definition. The capability matrix per
// tier (included modules, named features) lives in the entitlements package;
// the row ties a subscription to a tier and carries display/billing metadata.
type Plan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	Tier      string    `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
