package models

import "time"

const (
	SubscriptionStatusTrialing    = "trialing"
	SubscriptionStatusActive      = "active"
	SubscriptionStatusGracePeriod = "grace_period"
	SubscriptionStatusPastDue     = "past_due"
	SubscriptionStatusSuspended   = "suspended"
	SubscriptionStatusCancelled   = "cancelled"
)

// Subscription is a tenant's subscription to a plan. A tenant has at most one
// live row (superseded_at IS NULL); plan changes supersede the old row and
// create a fresh one instead of mutating in place, so billing history survives.
type Subscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	TenantID          uint       `gorm:"not null;index:idx_subscriptions_tenant_live,priority:1" json:"tenant_id"`
	PlanID            uint       `gorm:"not null;index" json:"plan_id"`
	Status            string     `gorm:"type:varchar(32);not null;default:'trialing';index" json:"status"`
	TrialEndsAt       *time.Time `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd  *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `gorm:"default:false" json:"cancel_at_period_end"`
	SupersededAt      *time.Time `gorm:"type:timestamp;default:null;index:idx_subscriptions_tenant_live,priority:2" json:"superseded_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTrialExpired reports whether a trialing subscription has run out at now.
func (s *Subscription) IsTrialExpired(now time.Time) bool {
	if s.Status != SubscriptionStatusTrialing {
		return false
	}
	if s.TrialEndsAt == nil {
		// Trialing without an end date is a data integrity problem; treat as expired.
		return true
	}
	return now.After(*s.TrialEndsAt)
}

// IsBlockedForBilling reports whether the subscription status denies access
// regardless of plan capabilities.
func (s *Subscription) IsBlockedForBilling() bool {
	switch s.Status {
	case SubscriptionStatusSuspended, SubscriptionStatusCancelled:
		return true
	default:
		return false
	}
}
