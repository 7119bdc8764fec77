package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is an isolated customer organization. All policy and billing state is
// scoped to a tenant.
type Tenant struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`
	CountryCode string         `gorm:"type:varchar(2);index" json:"country_code"`
	Status      string         `gorm:"type:varchar(50);default:'active'" json:"status"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsActive reports whether the tenant is usable at all.
func (t *Tenant) IsActive() bool {
	return t.Status == STATUS_ACTIVE
}
