package audit

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
	"github.com/stratumhq/stratum/internal/pkg/usercontext"
)

// Entry is the caller-facing shape of one audit record. Before/After are
// caller-supplied snapshots (old/new role, old/new policy); the recorder
// serializes them as-is and never diffs.
type Entry struct {
	TenantID        uint
	ActorUserID     uint
	Action          string
	TargetType      string
	TargetID        string
	Outcome         string
	FailureReason   string
	BeforeValue     interface{}
	AfterValue      interface{}
	IsImpersonating bool
	RealUserID      *uint
	IPAddress       string
	UserAgent       string
}

// Recorder writes audit entries best-effort. Recording never fails the
// guarded operation: storage errors are written to the operational log and
// swallowed.
type Recorder struct {
	repo repository.AuditRepository
}

// NewRecorder creates a recorder over the audit repository.
func NewRecorder(repo repository.AuditRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record persists one entry. Entries without a resolved actor are skipped;
// fully unauthenticated requests are not audited by this component.
func (r *Recorder) Record(e Entry) {
	if e.ActorUserID == 0 {
		return
	}
	if e.Outcome == "" {
		e.Outcome = models.AuditOutcomeSuccess
	}

	row := &models.AuditLogEntry{
		TenantID:        e.TenantID,
		ActorUserID:     e.ActorUserID,
		Action:          e.Action,
		TargetType:      e.TargetType,
		TargetID:        e.TargetID,
		Outcome:         e.Outcome,
		FailureReason:   e.FailureReason,
		BeforeValue:     marshalSnapshot(e.BeforeValue),
		AfterValue:      marshalSnapshot(e.AfterValue),
		IsImpersonating: e.IsImpersonating,
		RealUserID:      e.RealUserID,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
	}
	if err := r.repo.Create(row); err != nil {
		log.Printf("audit: failed to record %s for user %d: %v", e.Action, e.ActorUserID, err)
	}
}

// Middleware wraps a route handler and emits one audit entry for it: success
// when the handler returns cleanly without having written an error status,
// fail with the error message when it returns an error. Handlers that already
// sent an HTTP error response produce no success entry.
func (r *Recorder) Middleware(action, targetType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return c.Next()
		}

		base := Entry{
			TenantID:        uc.TenantID,
			ActorUserID:     uc.AuditActorID(),
			Action:          action,
			TargetType:      targetType,
			TargetID:        targetIDFromRoute(c),
			IsImpersonating: uc.IsImpersonating,
			RealUserID:      uc.AuditRealUserID(),
			IPAddress:       c.IP(),
			UserAgent:       c.Get(fiber.HeaderUserAgent),
		}

		err := c.Next()
		if err != nil {
			base.Outcome = models.AuditOutcomeFail
			base.FailureReason = err.Error()
			r.Record(base)
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			// The handler already answered with an error; no success entry.
			return nil
		}
		base.Outcome = models.AuditOutcomeSuccess
		r.Record(base)
		return nil
	}
}

func targetIDFromRoute(c *fiber.Ctx) string {
	if id := c.Params("id"); id != "" {
		return id
	}
	return c.Params("code")
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
