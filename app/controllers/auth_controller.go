package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/session"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates by email and password and binds the user to the
// cookie session. The response stays identical for unknown emails and wrong
// passwords.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Email and password are required")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		return errorResponse(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
	}
	if !user.IsActive() {
		return errorResponse(c, fiber.StatusForbidden, "ACCOUNT_DISABLED", "This account is not active")
	}

	if err := session.SetSessionValue(c, usercontext.KeyUserID, fmt.Sprintf("%d", user.ID)); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not create session")
	}

	now := time.Now()
	user.LastLoginAt = &now
	// Timestamp is informational; login succeeds either way.
	_ = userRepo.Update(user)

	return c.JSON(fiber.Map{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}

// HandleLogout clears the session binding. Always succeeds.
func HandleLogout(c *fiber.Ctx) error {
	_ = session.SetSessionValue(c, usercontext.KeyUserID, "")
	_ = session.SetSessionValue(c, usercontext.KeyTenantTier, "")
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMe returns the resolved request identity, including impersonation
// provenance so the client can render the banner without a second call.
func HandleMe(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return errorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required")
	}
	return c.JSON(uc)
}
