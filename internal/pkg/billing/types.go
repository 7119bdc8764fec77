package billing

import "time"

// PaymentEvent is the provider-agnostic shape used when syncing external
// payment state into local subscription and entitlement rows.
type PaymentEvent struct {
	TenantID  uint
	Status    string // one of the models.SubscriptionStatus* values
	PeriodEnd *time.Time
	GraceDays int
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
