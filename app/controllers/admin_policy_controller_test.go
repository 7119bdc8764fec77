package controllers

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type fakePolicyRepo struct {
	existing *models.CountryRolloutPolicy
	readErr  error
	upserted *models.CountryRolloutPolicy
}

func (f *fakePolicyRepo) GetByCountry(string) (*models.CountryRolloutPolicy, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.existing, nil
}

func (f *fakePolicyRepo) Upsert(policy *models.CountryRolloutPolicy) error {
	f.upserted = policy
	return nil
}

func upsertPolicyApp(policyRepo *fakePolicyRepo, auditRepo *memAuditRepo) *fiber.App {
	repository.SetGlobalRepositories(&repository.Repositories{Policy: policyRepo})
	auditRecorder = audit.NewRecorder(auditRepo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{UserID: 1, TenantID: 1, IsLoggedIn: true, IsAdmin: true})
		return c.Next()
	})
	app.Put("/admin/rollout/:code", HandleAdminUpsertPolicy)
	return app
}

func putPolicy(t *testing.T, app *fiber.App, code string) int {
	t.Helper()
	body := []byte(`{"is_active":true,"enabled_modules":["invoicing"]}`)
	req := httptest.NewRequest("PUT", "/admin/rollout/"+code, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestUpsertPolicyProceedsWhenSnapshotReadFails(t *testing.T) {
	policyRepo := &fakePolicyRepo{readErr: errors.New("connection reset")}
	auditRepo := &memAuditRepo{}
	app := upsertPolicyApp(policyRepo, auditRepo)

	status := putPolicy(t, app, "DE")

	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, policyRepo.upserted)
	assert.Equal(t, "DE", policyRepo.upserted.CountryCode)

	// The failed snapshot read costs only the before image.
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, "rollout_policy.upsert", auditRepo.entries[0].Action)
	assert.Empty(t, auditRepo.entries[0].BeforeValue)
}

func TestUpsertPolicyRecordsBeforeSnapshot(t *testing.T) {
	policyRepo := &fakePolicyRepo{existing: &models.CountryRolloutPolicy{
		CountryCode: "DE",
		IsActive:    false,
	}}
	auditRepo := &memAuditRepo{}
	app := upsertPolicyApp(policyRepo, auditRepo)

	status := putPolicy(t, app, "DE")

	assert.Equal(t, fiber.StatusOK, status)
	require.Len(t, auditRepo.entries, 1)
	assert.Contains(t, auditRepo.entries[0].BeforeValue, `"is_active":false`)
	assert.Contains(t, auditRepo.entries[0].AfterValue, `"is_active":true`)
}
