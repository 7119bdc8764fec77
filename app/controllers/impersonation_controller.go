package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/impersonation"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type impersonationStartRequest struct {
	TargetUserID uint   `json:"target_user_id" validate:"required"`
	ReasonCode   string `json:"reason_code" validate:"max=100"`
}

// HandleImpersonationStart mints an impersonation session for the calling
// admin. The route is guarded by the admin check and the step-up gate for the
// impersonate purpose; by the time this handler runs the caller has already
// proven their identity for exactly this action.
func HandleImpersonationStart(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req impersonationStartRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "target_user_id is required")
	}

	token, sess, err := impManager.Start(c.Context(), uc.UserID, req.TargetUserID, req.ReasonCode)
	if err != nil {
		auditRecorder.Record(audit.Entry{
			TenantID:      uc.TenantID,
			ActorUserID:   uc.UserID,
			Action:        "impersonation.start",
			TargetType:    "user",
			TargetID:      itoa(req.TargetUserID),
			Outcome:       models.AuditOutcomeFail,
			FailureReason: err.Error(),
			IPAddress:     c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
		})

		switch {
		case errors.Is(err, impersonation.ErrSelfImpersonation):
			return errorResponse(c, fiber.StatusBadRequest, "SELF_IMPERSONATION", "You cannot impersonate yourself")
		case errors.Is(err, impersonation.ErrTargetNotFound):
			return errorResponse(c, fiber.StatusNotFound, "TARGET_NOT_FOUND", "Target user not found")
		case errors.Is(err, impersonation.ErrTargetInactive):
			return errorResponse(c, fiber.StatusConflict, "TARGET_INACTIVE", "Target user is not active")
		default:
			return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not start impersonation")
		}
	}

	auditRecorder.Record(audit.Entry{
		TenantID:    sess.TenantID,
		ActorUserID: uc.UserID,
		Action:      "impersonation.start",
		TargetType:  "user",
		TargetID:    itoa(sess.TargetUserID),
		Outcome:     models.AuditOutcomeSuccess,
		AfterValue:  sess,
		IPAddress:   c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
	})

	return c.JSON(fiber.Map{
		"token":      token,
		"session_id": sess.SessionID,
		"expires_at": sess.ExpiresAt,
	})
}

// HandleImpersonationExit revokes the caller's live impersonation session.
// Under impersonation the acting admin is the real user on the context, not
// the target. Exiting with no live session is a no-op.
func HandleImpersonationExit(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	actingID := uc.UserID
	if uc.IsImpersonating {
		actingID = uc.RealUserID
	}

	if err := impManager.Exit(c.Context(), actingID); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not exit impersonation")
	}

	auditRecorder.Record(audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     actingID,
		Action:          "impersonation.exit",
		TargetType:      "user",
		TargetID:        itoa(uc.UserID),
		Outcome:         models.AuditOutcomeSuccess,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.JSON(fiber.Map{"active": false})
}

// HandleImpersonationStatus reports the caller's impersonation state for the
// client banner, which polls it about once a minute to catch externally
// revoked or expired sessions.
func HandleImpersonationStatus(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	actingID := uc.UserID
	if uc.IsImpersonating {
		actingID = uc.RealUserID
	}

	status, err := impManager.Status(c.Context(), actingID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not resolve impersonation status")
	}
	return c.JSON(status)
}
