package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
)

type fakeRepo struct {
	plans         map[string]*models.Plan
	subscriptions []*models.Subscription
	entitlements  map[string]*models.AddonEntitlement
	webhookEvents map[string]*models.BillingWebhookEvent
	nextID        uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:         map[string]*models.Plan{},
		entitlements:  map[string]*models.AddonEntitlement{},
		webhookEvents: map[string]*models.BillingWebhookEvent{},
		nextID:        1,
	}
}

func (f *fakeRepo) addPlan(id uint, code, tier string) *models.Plan {
	p := &models.Plan{ID: id, Code: code, Tier: tier, IsActive: true}
	f.plans[code] = p
	return p
}

func (f *fakeRepo) GetPlanByID(id uint) (*models.Plan, error) {
	for _, p := range f.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetPlanByCode(code string) (*models.Plan, error) {
	if p, ok := f.plans[code]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetActiveSubscription(tenantID uint) (*models.Subscription, error) {
	for i := len(f.subscriptions) - 1; i >= 0; i-- {
		s := f.subscriptions[i]
		if s.TenantID == tenantID && s.SupersededAt == nil {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateSubscription(sub *models.Subscription) error {
	sub.ID = f.nextID
	f.nextID++
	f.subscriptions = append(f.subscriptions, sub)
	return nil
}

func (f *fakeRepo) SupersedeSubscription(subID uint, at time.Time) error {
	for _, s := range f.subscriptions {
		if s.ID == subID && s.SupersededAt == nil {
			t := at
			s.SupersededAt = &t
		}
	}
	return nil
}

func (f *fakeRepo) UpdateSubscriptionStatus(subID uint, status string, currentPeriodEnd *time.Time) error {
	for _, s := range f.subscriptions {
		if s.ID == subID {
			s.Status = status
			if currentPeriodEnd != nil {
				s.CurrentPeriodEnd = currentPeriodEnd
			}
		}
	}
	return nil
}

func (f *fakeRepo) entKey(tenantID uint, addonCode string) string {
	return fmt.Sprintf("%d/%s", tenantID, addonCode)
}

func (f *fakeRepo) GetEntitlement(tenantID uint, addonCode string) (*models.AddonEntitlement, error) {
	if rec, ok := f.entitlements[f.entKey(tenantID, addonCode)]; ok {
		return rec, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListEntitlements(tenantID uint) ([]models.AddonEntitlement, error) {
	var out []models.AddonEntitlement
	for _, rec := range f.entitlements {
		if rec.TenantID == tenantID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveEntitlement(rec *models.AddonEntitlement) error {
	if rec.ID == 0 {
		rec.ID = f.nextID
		f.nextID++
	}
	stored := *rec
	f.entitlements[f.entKey(rec.TenantID, rec.AddonCode)] = &stored
	return nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.webhookEvents[key]; ok {
		return false, stored, nil
	}
	event.ID = f.nextID
	f.nextID++
	f.webhookEvents[key] = event
	return true, event, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.webhookEvents {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

func TestChangePlan_SupersedesInsteadOfMutating(t *testing.T) {
	repo := newFakeRepo()
	repo.addPlan(1, "starter_monthly", "starter")
	repo.addPlan(2, "pro_monthly", "pro")
	svc := NewService(repo)

	first, err := svc.StartSubscription(context.Background(), 7, "starter_monthly")
	require.NoError(t, err)

	next, err := svc.ChangePlan(context.Background(), 7, "pro_monthly")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, next.ID)
	assert.NotNil(t, first.SupersededAt, "old subscription must be superseded, not mutated")
	assert.Equal(t, uint(2), next.PlanID)

	live, err := repo.GetActiveSubscription(7)
	require.NoError(t, err)
	assert.Equal(t, next.ID, live.ID)
}

func TestChangePlan_SamePlanIsNoop(t *testing.T) {
	repo := newFakeRepo()
	repo.addPlan(1, "starter_monthly", "starter")
	svc := NewService(repo)

	first, err := svc.StartSubscription(context.Background(), 7, "starter_monthly")
	require.NoError(t, err)

	again, err := svc.ChangePlan(context.Background(), 7, "starter_monthly")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Nil(t, first.SupersededAt)
}

func TestApplyPaymentEvent_GraceExtendsEntitlements(t *testing.T) {
	repo := newFakeRepo()
	repo.addPlan(1, "pro_monthly", "pro")
	svc := NewService(repo)

	_, err := svc.StartSubscription(context.Background(), 3, "pro_monthly")
	require.NoError(t, err)

	paidUntil := time.Now().AddDate(0, 0, 2)
	require.NoError(t, repo.SaveEntitlement(&models.AddonEntitlement{
		TenantID:           3,
		AddonCode:          "hrms",
		Status:             models.AddonStatusActive,
		SubscriptionStatus: models.SubscriptionStatusActive,
		InstalledAt:        time.Now(),
		PaidUntil:          &paidUntil,
	}))

	err = svc.ApplyPaymentEvent(context.Background(), PaymentEvent{
		TenantID:  3,
		Status:    models.SubscriptionStatusGracePeriod,
		GraceDays: 7,
	})
	require.NoError(t, err)

	rec, err := repo.GetEntitlement(3, "hrms")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusGracePeriod, rec.SubscriptionStatus)
	require.NotNil(t, rec.GraceUntil)
	assert.True(t, rec.GraceUntil.After(*rec.PaidUntil), "grace must extend past paid validity")
}

func TestApplyPaymentEvent_SkipsCancelledAddons(t *testing.T) {
	repo := newFakeRepo()
	repo.addPlan(1, "pro_monthly", "pro")
	svc := NewService(repo)

	_, err := svc.StartSubscription(context.Background(), 3, "pro_monthly")
	require.NoError(t, err)

	require.NoError(t, repo.SaveEntitlement(&models.AddonEntitlement{
		TenantID:           3,
		AddonCode:          "legal",
		Status:             models.AddonStatusCancelled,
		SubscriptionStatus: models.SubscriptionStatusCancelled,
		InstalledAt:        time.Now(),
	}))

	periodEnd := time.Now().AddDate(0, 1, 0)
	err = svc.ApplyPaymentEvent(context.Background(), PaymentEvent{
		TenantID:  3,
		Status:    models.SubscriptionStatusActive,
		PeriodEnd: &periodEnd,
	})
	require.NoError(t, err)

	rec, err := repo.GetEntitlement(3, "legal")
	require.NoError(t, err)
	assert.Equal(t, models.AddonStatusCancelled, rec.Status, "cancelled add-ons must not be revived by payment events")
}

func TestInstallAddon_RejectsDependencyGated(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.InstallAddon(context.Background(), 1, "employee_directory", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not directly installable")
}

func TestInstallAddon_StartsTrial(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec, err := svc.InstallAddon(context.Background(), 1, "hrms", 14)
	require.NoError(t, err)
	assert.Equal(t, models.AddonStatusTrial, rec.Status)
	assert.Equal(t, models.SubscriptionStatusTrialing, rec.SubscriptionStatus)
	require.NotNil(t, rec.TrialEndsAt)
	assert.True(t, rec.TrialEndsAt.After(time.Now()))
}

func TestCancelAddon_RetainsRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.InstallAddon(context.Background(), 1, "hrms", 14)
	require.NoError(t, err)

	rec, err := svc.CancelAddon(context.Background(), 1, "hrms")
	require.NoError(t, err)
	assert.Equal(t, models.AddonStatusCancelled, rec.Status)

	stored, err := repo.GetEntitlement(1, "hrms")
	require.NoError(t, err)
	assert.Equal(t, models.AddonStatusCancelled, stored.Status)
}

func TestResolveTier(t *testing.T) {
	repo := newFakeRepo()
	repo.addPlan(1, "pro_monthly", "pro")
	svc := NewService(repo)

	// No subscription at all resolves to free.
	tier, err := svc.ResolveTier(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierFree, tier)

	sub, err := svc.StartSubscription(context.Background(), 42, "pro_monthly")
	require.NoError(t, err)

	tier, err = svc.ResolveTier(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierPro, tier)

	// Suspended subscription drops back to free.
	require.NoError(t, repo.UpdateSubscriptionStatus(sub.ID, models.SubscriptionStatusSuspended, nil))
	tier, err = svc.ResolveTier(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierFree, tier)
}

func TestRecordWebhookEvent_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, first, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_123",
		EventType:       "invoice.paid",
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_123",
		EventType:       "invoice.paid",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordWebhookEvent_HashFallbackEventID(t *testing.T) {
	svc := NewService(newFakeRepo())

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "stripe",
		PayloadJSON: `{"foo":"bar"}`,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, stored.ProviderEventID, "hash:")
}
