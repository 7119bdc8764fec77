package middleware

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/rollout"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type fakePolicyStore struct {
	policies map[string]*models.CountryRolloutPolicy
	err      error
}

func (f *fakePolicyStore) GetByCountry(code string) (*models.CountryRolloutPolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.policies[code]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func rolloutApp(handler fiber.Handler, countryCode string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID: 1, TenantID: 1, IsLoggedIn: true, CountryCode: countryCode,
		})
		return c.Next()
	})
	app.Get("/r", handler, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestRequireModuleMissingPolicyFailsClosed(t *testing.T) {
	guard := rollout.NewGuard(&fakePolicyStore{})
	app := rolloutApp(RequireModule(guard, "payroll"), "DE")

	resp, err := app.Test(httptest.NewRequest("GET", "/r", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, rollout.CodeCountryNotActive, body["code"])
}

func TestRequireModuleLookupErrorFailsOpen(t *testing.T) {
	guard := rollout.NewGuard(&fakePolicyStore{err: errors.New("connection refused")})
	app := rolloutApp(RequireModule(guard, "payroll"), "DE")

	resp, err := app.Test(httptest.NewRequest("GET", "/r", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRolloutNoCountryCodePassesThrough(t *testing.T) {
	guard := rollout.NewGuard(&fakePolicyStore{})
	app := rolloutApp(RequireCountryActive(guard), "")

	resp, err := app.Test(httptest.NewRequest("GET", "/r", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireFeatureDeniesUnlisted(t *testing.T) {
	store := &fakePolicyStore{policies: map[string]*models.CountryRolloutPolicy{
		"FR": {
			CountryCode:     "FR",
			IsActive:        true,
			EnabledModules:  []string{},
			EnabledFeatures: map[string]bool{"bulk_export": true, "sso": false},
		},
	}}
	guard := rollout.NewGuard(store)

	resp, err := rolloutApp(RequireFeature(guard, "bulk_export"), "FR").Test(httptest.NewRequest("GET", "/r", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = rolloutApp(RequireFeature(guard, "sso"), "FR").Test(httptest.NewRequest("GET", "/r", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, rollout.CodeFeatureNotAvailable, body["code"])
}
