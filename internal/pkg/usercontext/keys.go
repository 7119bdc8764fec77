package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	ContextKey      = "USER_CONTEXT"
	SubscriptionKey = "SUBSCRIPTION_CONTEXT"
	KeyUserID       = "user_id"
	KeyTenantTier   = "tenant_tier"
)
