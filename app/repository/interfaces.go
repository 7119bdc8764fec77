package repository

import (
	"time"

	"github.com/stratumhq/stratum/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// TenantRepository defines the interface for tenant lookups
type TenantRepository interface {
	GetByID(id uint) (*models.Tenant, error)
}

// PlanRepository defines the interface for plan lookups
type PlanRepository interface {
	GetByID(id uint) (*models.Plan, error)
	GetByCode(code string) (*models.Plan, error)
}

// SubscriptionRepository defines the interface for subscription state.
// A tenant's live subscription is the single row with superseded_at IS NULL.
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetActiveByTenant(tenantID uint) (*models.Subscription, error)
	Supersede(subID uint, at time.Time) error
	UpdateStatus(subID uint, status string, currentPeriodEnd *time.Time) error
}

// EntitlementRepository defines the interface for add-on entitlement records
type EntitlementRepository interface {
	GetByTenantAndAddon(tenantID uint, addonCode string) (*models.AddonEntitlement, error)
	ListByTenant(tenantID uint) ([]models.AddonEntitlement, error)
	MapByTenant(tenantID uint) (map[string]*models.AddonEntitlement, error)
	Save(rec *models.AddonEntitlement) error
}

// PolicyRepository defines the interface for country rollout policies
type PolicyRepository interface {
	GetByCountry(countryCode string) (*models.CountryRolloutPolicy, error)
	Upsert(policy *models.CountryRolloutPolicy) error
}

// ImpersonationRepository defines the interface for impersonation sessions
type ImpersonationRepository interface {
	Create(sess *models.ImpersonationSession) error
	GetBySessionID(sessionID string) (*models.ImpersonationSession, error)
	GetActiveByActingUser(actingUserID uint, now time.Time) (*models.ImpersonationSession, error)
	Revoke(sessionID string, at time.Time) error
}

// AuditRepository defines the interface for the append-only audit log.
// There are deliberately no update or delete methods.
type AuditRepository interface {
	Create(entry *models.AuditLogEntry) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	User          UserRepository
	Tenant        TenantRepository
	Plan          PlanRepository
	Subscription  SubscriptionRepository
	Entitlement   EntitlementRepository
	Policy        PolicyRepository
	Impersonation ImpersonationRepository
	Audit         AuditRepository
}

// NewRepositories creates all repositories backed by the given GORM handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Tenant:        NewTenantRepository(db),
		Plan:          NewPlanRepository(db),
		Subscription:  NewSubscriptionRepository(db),
		Entitlement:   NewEntitlementRepository(db),
		Policy:        NewPolicyRepository(db),
		Impersonation: NewImpersonationRepository(db),
		Audit:         NewAuditRepository(db),
	}
}
