package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/audit"
	"github.com/stratumhq/stratum/internal/pkg/mail"
	"github.com/stratumhq/stratum/internal/pkg/stepup"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

type stepUpChallengeRequest struct {
	Purpose string `json:"purpose" validate:"required"`
}

// Code format is checked by the step-up service so a malformed code answers
// with the same generic message as a wrong one.
type stepUpVerifyRequest struct {
	Code    string `json:"code"`
	Purpose string `json:"purpose" validate:"required"`
}

// HandleStepUpChallenge issues a fresh verification challenge for the given
// purpose and delivers the code by email. Users with an enrolled
// authenticator app use it instead of the emailed code; the challenge still
// binds the purpose either way.
func HandleStepUpChallenge(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return errorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required")
	}

	var req stepUpChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "purpose is required")
	}
	purpose := stepup.Purpose(req.Purpose)

	code, err := stepUpService.Issue(c.Context(), uc.UserID, purpose)
	if err != nil {
		if errors.Is(err, stepup.ErrUnknownPurpose) {
			return errorResponse(c, fiber.StatusBadRequest, "UNKNOWN_PURPOSE", "Unknown verification purpose")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not issue verification challenge")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uc.UserID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not resolve user")
	}
	if !user.HasTOTP() {
		if err := mail.SendVerificationCode(user.Email, code, purpose.Label()); err != nil {
			log.Printf("step-up: could not deliver code to user %d: %v", user.ID, err)
			return errorResponse(c, fiber.StatusInternalServerError, "DELIVERY_FAILED", "Could not deliver verification code")
		}
	}

	return c.JSON(fiber.Map{
		"issued":    true,
		"purpose":   string(purpose),
		"uses_totp": user.HasTOTP(),
	})
}

// HandleStepUpVerify checks a submitted code. A wrong code always answers
// with the same generic message so attempts reveal nothing about issued
// challenges; operational failures surface their own message.
func HandleStepUpVerify(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return errorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Login required")
	}

	var req stepUpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", "purpose is required")
	}
	purpose := stepup.Purpose(req.Purpose)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uc.UserID)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Could not resolve user")
	}

	err = stepUpService.Verify(c.Context(), uc.UserID, purpose, req.Code, user.TOTPSecret)
	if err != nil {
		auditRecorder.Record(audit.Entry{
			TenantID:        uc.TenantID,
			ActorUserID:     uc.AuditActorID(),
			Action:          "stepup.verify",
			TargetType:      "stepup_purpose",
			TargetID:        string(purpose),
			Outcome:         models.AuditOutcomeFail,
			FailureReason:   err.Error(),
			IsImpersonating: uc.IsImpersonating,
			RealUserID:      uc.AuditRealUserID(),
			IPAddress:       c.IP(),
			UserAgent:       c.Get(fiber.HeaderUserAgent),
		})

		if errors.Is(err, stepup.ErrInvalidCode) || errors.Is(err, stepup.ErrNoChallenge) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "INVALID_OTP",
				"message": stepup.InvalidCodeMessage,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "VERIFICATION_FAILED",
			"message": err.Error(),
		})
	}

	auditRecorder.Record(audit.Entry{
		TenantID:        uc.TenantID,
		ActorUserID:     uc.AuditActorID(),
		Action:          "stepup.verify",
		TargetType:      "stepup_purpose",
		TargetID:        string(purpose),
		Outcome:         models.AuditOutcomeSuccess,
		IsImpersonating: uc.IsImpersonating,
		RealUserID:      uc.AuditRealUserID(),
		IPAddress:       c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
	})

	return c.JSON(fiber.Map{"verified": true, "purpose": string(purpose)})
}
