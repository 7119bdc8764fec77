package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext is the typed request context populated once by the user-context
// middleware and read by every gate. Gates never reach into session state
// directly.
type UserContext struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	TenantID    uint   `json:"tenant_id"`
	CountryCode string `json:"country_code"`
	Tier        string `json:"tier"`
	IsLoggedIn  bool   `json:"is_logged_in"`
	IsAdmin     bool   `json:"is_admin"`

	// Impersonation provenance. When IsImpersonating is set, UserID/TenantID
	// describe the target identity and RealUserID the acting admin.
	IsImpersonating bool `json:"is_impersonating"`
	RealUserID      uint `json:"real_user_id,omitempty"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// SetUserContext stores the user context on the request.
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(ContextKey, uc)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetTenantID returns the current tenant's ID, or 0 if not resolved
func GetTenantID(c *fiber.Ctx) uint {
	return GetUserContext(c).TenantID
}

// AuditActorID returns the identity audit entries should attribute the
// business effect to, which under impersonation is the target user.
func (uc UserContext) AuditActorID() uint {
	return uc.UserID
}

// AuditRealUserID returns the true acting identity for audit provenance, or
// nil when the request is not impersonated.
func (uc UserContext) AuditRealUserID() *uint {
	if !uc.IsImpersonating {
		return nil
	}
	id := uc.RealUserID
	return &id
}
