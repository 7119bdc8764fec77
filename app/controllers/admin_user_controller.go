package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

// HandleAdminChangeRole updates a user's role. The route is gated on a
// step-up verification for the change_role purpose; the audit entry carries
// the old and new role as snapshots.
func HandleAdminChangeRole(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid user id")
	}

	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	switch req.Role {
	case models.ROLE_MEMBER, models.ROLE_STAFF, models.ROLE_ADMIN:
	default:
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_ROLE", "Unknown role")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "USER_NOT_FOUND", "User not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not load user")
	}

	oldRole := user.Role
	user.Role = req.Role
	if err := userRepo.Update(user); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not update user")
	}

	auditRecorder.Record(audit.Entry{
		TenantID:        user.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "user.change_role",
		TargetType:      "user",
		TargetID:        itoa(user.ID),
		Outcome:         models.AuditOutcomeSuccess,
		BeforeValue:     oldRole,
		AfterValue:      req.Role,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.JSON(fiber.Map{"user_id": user.ID, "role": user.Role})
}
