package impersonation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
	"github.com/stratumhq/stratum/app/repository"
)

const DefaultSessionTTL = 30 * time.Minute

var (
	ErrSelfImpersonation = errors.New("cannot impersonate yourself")
	ErrTargetNotFound    = errors.New("target user not found")
	ErrTargetInactive    = errors.New("target user is not active")
	ErrNoActiveSession   = errors.New("no active impersonation session")
)

// Status is the response shape of the impersonation status endpoint, polled
// by the client banner to detect externally revoked or expired sessions.
type Status struct {
	Active    bool          `json:"active"`
	Target    *StatusTarget `json:"target,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

type StatusTarget struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Manager runs the impersonation session lifecycle. Starting a session is
// gated elsewhere on a consumed step-up verification for the impersonate
// purpose; the manager only deals in already-authorized starts.
type Manager struct {
	sessions repository.ImpersonationRepository
	users    repository.UserRepository
	secret   string
	ttl      time.Duration
}

// NewManager creates an impersonation manager.
func NewManager(sessions repository.ImpersonationRepository, users repository.UserRepository, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{sessions: sessions, users: users, secret: secret, ttl: ttl}
}

// Start creates a session for actingUser viewing as targetUser and returns
// the bearer token. At most one session per acting user is live at a time:
// starting a new one revokes any previous session first.
func (m *Manager) Start(ctx context.Context, actingUserID, targetUserID uint, reasonCode string) (string, *models.ImpersonationSession, error) {
	_ = ctx
	if actingUserID == targetUserID {
		return "", nil, ErrSelfImpersonation
	}

	target, err := m.users.GetByID(targetUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrTargetNotFound
		}
		return "", nil, err
	}
	if !target.IsActive() {
		return "", nil, ErrTargetInactive
	}

	now := time.Now()
	if prev, err := m.sessions.GetActiveByActingUser(actingUserID, now); err == nil {
		if err := m.sessions.Revoke(prev.SessionID, now); err != nil {
			return "", nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	sess := &models.ImpersonationSession{
		SessionID:    uuid.NewString(),
		TenantID:     target.TenantID,
		ActingUserID: actingUserID,
		TargetUserID: targetUserID,
		ReasonCode:   reasonCode,
		ExpiresAt:    now.Add(m.ttl),
	}
	if err := m.sessions.Create(sess); err != nil {
		return "", nil, err
	}

	token, err := MintToken(m.secret, sess.SessionID, actingUserID, targetUserID, sess.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve validates a bearer token against its session row and returns the
// live session, or an error when the token is invalid, revoked or expired.
// Expiry is lazy: an expired row behaves exactly like an exited one.
func (m *Manager) Resolve(tokenStr string, now time.Time) (*models.ImpersonationSession, error) {
	claims, err := ParseToken(m.secret, tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sess, err := m.sessions.GetBySessionID(claims.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	if !sess.IsActive(now) {
		return nil, ErrNoActiveSession
	}
	if sess.ActingUserID != claims.ActingUserID || sess.TargetUserID != claims.TargetUserID {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Exit revokes the acting user's live session. Exiting when no session is
// live is not an error; the end state is the same.
func (m *Manager) Exit(ctx context.Context, actingUserID uint) error {
	_ = ctx
	sess, err := m.sessions.GetActiveByActingUser(actingUserID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return m.sessions.Revoke(sess.SessionID, time.Now())
}

// Status reports the acting user's current impersonation state for the
// client banner.
func (m *Manager) Status(ctx context.Context, actingUserID uint) (Status, error) {
	_ = ctx
	sess, err := m.sessions.GetActiveByActingUser(actingUserID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Status{Active: false}, nil
		}
		return Status{}, err
	}

	target, err := m.users.GetByID(sess.TargetUserID)
	if err != nil {
		return Status{}, fmt.Errorf("load impersonation target: %w", err)
	}
	expires := sess.ExpiresAt
	return Status{
		Active:    true,
		Target:    &StatusTarget{FullName: target.FullName, Email: target.Email},
		ExpiresAt: &expires,
	}, nil
}
