package constants

// Static route constants
const (
	APIRoute     = "/api"
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"

	BillingURL = "/settings/billing"
	UpgradeURL = "/settings/billing/upgrade"
)
