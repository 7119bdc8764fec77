package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/entitlements"
	"github.com/stratumhq/stratum/internal/pkg/impersonation"
	"github.com/stratumhq/stratum/internal/pkg/session"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// UserContextResolver populates the typed request context exactly once per
// request, before any gate runs. Gates read the resolved context instead of
// reaching into session or header state themselves.
//
// Resolution order: a bearer impersonation token wins over the cookie
// session, so an admin with a live impersonation session sees the platform
// as the target user while their own session stays untouched.
type UserContextResolver struct {
	users   repository.UserRepository
	tenants repository.TenantRepository
	subs    repository.SubscriptionRepository
	plans   repository.PlanRepository
	imp     *impersonation.Manager
}

// NewUserContextResolver creates the resolver middleware factory.
func NewUserContextResolver(repos *repository.Repositories, imp *impersonation.Manager) *UserContextResolver {
	return &UserContextResolver{
		users:   repos.User,
		tenants: repos.Tenant,
		subs:    repos.Subscription,
		plans:   repos.Plan,
		imp:     imp,
	}
}

// Handler returns the middleware.
func (r *UserContextResolver) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := extractBearer(c); token != "" && r.imp != nil {
			if uc, ok := r.resolveImpersonation(c, token); ok {
				usercontext.SetUserContext(c, uc)
				return c.Next()
			}
			// An invalid or expired token falls back to the session identity,
			// which is exactly the exit behavior the client expects.
		}

		usercontext.SetUserContext(c, r.resolveSession(c))
		return c.Next()
	}
}

func (r *UserContextResolver) resolveImpersonation(c *fiber.Ctx, token string) (usercontext.UserContext, bool) {
	sess, err := r.imp.Resolve(token, time.Now())
	if err != nil {
		return usercontext.UserContext{}, false
	}

	target, err := r.users.GetByID(sess.TargetUserID)
	if err != nil || !target.IsActive() {
		return usercontext.UserContext{}, false
	}

	// The session cookie belongs to the acting admin, so its cached tier
	// describes the wrong tenant here.
	uc := r.buildContext(c, target, false)
	uc.IsImpersonating = true
	uc.RealUserID = sess.ActingUserID
	return uc, true
}

func (r *UserContextResolver) resolveSession(c *fiber.Ctx) usercontext.UserContext {
	rawID := session.GetSessionValue(c, usercontext.KeyUserID)
	if rawID == "" {
		return usercontext.UserContext{}
	}
	userID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return usercontext.UserContext{}
	}

	user, err := r.users.GetByID(uint(userID))
	if err != nil || !user.IsActive() {
		return usercontext.UserContext{}
	}

	return r.buildContext(c, user, true)
}

// buildContext assembles the context for an authenticated user. The tier is
// cached in the session so the common path costs one session read instead of
// two queries. A plan change only clears the key in the changer's own session,
// so other sessions in the tenant may carry the old tier until their session
// expires. The subscription gates re-resolve plan and tier from the database,
// so enforcement never relies on this cached value.
func (r *UserContextResolver) buildContext(c *fiber.Ctx, user *models.User, useSessionCache bool) usercontext.UserContext {
	uc := usercontext.UserContext{
		UserID:     user.ID,
		Username:   user.FullName,
		Email:      user.Email,
		TenantID:   user.TenantID,
		IsLoggedIn: true,
		IsAdmin:    user.IsAdmin(),
		Tier:       string(entitlements.TierFree),
	}

	if tenant, err := r.tenants.GetByID(user.TenantID); err == nil {
		uc.CountryCode = tenant.CountryCode
	} else {
		log.Printf("user context: tenant %d lookup failed for user %d: %v", user.TenantID, user.ID, err)
	}

	if useSessionCache {
		if cached := session.GetSessionValue(c, usercontext.KeyTenantTier); cached != "" {
			uc.Tier = cached
			return uc
		}
	}

	if sub, err := r.subs.GetActiveByTenant(user.TenantID); err == nil {
		if plan, err := r.plans.GetByID(sub.PlanID); err == nil {
			uc.Tier = string(entitlements.NormalizeTier(plan.Tier))
			if useSessionCache {
				if err := session.SetSessionValue(c, usercontext.KeyTenantTier, uc.Tier); err != nil {
					log.Printf("user context: could not cache tier for user %d: %v", user.ID, err)
				}
			}
		}
	}
	return uc
}
