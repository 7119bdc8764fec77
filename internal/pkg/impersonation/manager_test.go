package impersonation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stratumhq/stratum/app/models"
)

const testSecret = "test-secret"

type fakeSessionRepo struct {
	sessions map[string]*models.ImpersonationSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.ImpersonationSession{}}
}

func (f *fakeSessionRepo) Create(sess *models.ImpersonationSession) error {
	f.sessions[sess.SessionID] = sess
	return nil
}

func (f *fakeSessionRepo) GetBySessionID(sessionID string) (*models.ImpersonationSession, error) {
	if s, ok := f.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessionRepo) GetActiveByActingUser(actingUserID uint, now time.Time) (*models.ImpersonationSession, error) {
	for _, s := range f.sessions {
		if s.ActingUserID == actingUserID && s.IsActive(now) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessionRepo) Revoke(sessionID string, at time.Time) error {
	if s, ok := f.sessions[sessionID]; ok && s.RevokedAt == nil {
		t := at
		s.RevokedAt = &t
	}
	return nil
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (f *fakeUserRepo) Create(u *models.User) error { return nil }
func (f *fakeUserRepo) Update(u *models.User) error { return nil }

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func newManagerForTest() (*Manager, *fakeSessionRepo) {
	sessions := newFakeSessionRepo()
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, TenantID: 10, FullName: "Ada Admin", Email: "ada@example.com", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE},
		2: {ID: 2, TenantID: 10, FullName: "Max Member", Email: "max@example.com", Role: models.ROLE_MEMBER, Status: models.STATUS_ACTIVE},
		3: {ID: 3, TenantID: 10, FullName: "Deactivated", Email: "gone@example.com", Status: models.STATUS_DISABLED},
	}}
	return NewManager(sessions, users, testSecret, DefaultSessionTTL), sessions
}

func TestStart_MintsResolvableToken(t *testing.T) {
	m, _ := newManagerForTest()

	token, sess, err := m.Start(context.Background(), 1, 2, "support_ticket")
	require.NoError(t, err)
	assert.Equal(t, uint(1), sess.ActingUserID)
	assert.Equal(t, uint(2), sess.TargetUserID)
	assert.Equal(t, uint(10), sess.TenantID)

	resolved, err := m.Resolve(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, resolved.SessionID)
}

func TestStart_RejectsSelfAndInactiveTargets(t *testing.T) {
	m, _ := newManagerForTest()

	_, _, err := m.Start(context.Background(), 1, 1, "")
	assert.ErrorIs(t, err, ErrSelfImpersonation)

	_, _, err = m.Start(context.Background(), 1, 3, "")
	assert.ErrorIs(t, err, ErrTargetInactive)

	_, _, err = m.Start(context.Background(), 1, 99, "")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestStart_RevokesPreviousSession(t *testing.T) {
	m, repo := newManagerForTest()

	first, firstSess, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)

	_, secondSess, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)
	assert.NotEqual(t, firstSess.SessionID, secondSess.SessionID)

	// At most one active session per acting user.
	stored := repo.sessions[firstSess.SessionID]
	assert.NotNil(t, stored.RevokedAt)

	_, err = m.Resolve(first, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestExit_ClearsSession(t *testing.T) {
	m, _ := newManagerForTest()

	token, _, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)

	require.NoError(t, m.Exit(context.Background(), 1))

	_, err = m.Resolve(token, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveSession)

	status, err := m.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, status.Active)

	// Exiting again is a no-op, not an error.
	require.NoError(t, m.Exit(context.Background(), 1))
}

func TestResolve_LazyExpiry(t *testing.T) {
	m, _ := newManagerForTest()

	token, sess, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)

	// Observed after expiry the session behaves exactly like an exited one.
	_, err = m.Resolve(token, sess.ExpiresAt.Add(time.Second))
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestResolve_RejectsForgedTokens(t *testing.T) {
	m, _ := newManagerForTest()

	_, _, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)

	forged, err := MintToken("wrong-secret", "some-session", 1, 2, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = m.Resolve(forged, time.Now())
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Resolve("not-a-token", time.Now())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStatus_ReportsTarget(t *testing.T) {
	m, _ := newManagerForTest()

	_, sess, err := m.Start(context.Background(), 1, 2, "")
	require.NoError(t, err)

	status, err := m.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.Active)
	require.NotNil(t, status.Target)
	assert.Equal(t, "Max Member", status.Target.FullName)
	assert.Equal(t, "max@example.com", status.Target.Email)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, sess.ExpiresAt.Unix(), status.ExpiresAt.Unix())
}
