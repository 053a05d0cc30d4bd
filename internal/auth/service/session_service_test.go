package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalconseils/chefsocial-auth/config"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/service"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
	"github.com/cardinalconseils/chefsocial-auth/internal/mocks"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

type sessionServiceFixture struct {
	users    *mocks.MockUserRepository
	tokens   *mocks.MockTokenRepository
	sessions *mocks.MockSessionRepository
	issuer   *mocks.MockTokenGenerator
	cache    *mocks.MockBlacklistCache
	auditor  *mocks.MockAuditRecorder
	svc      *service.SessionService
}

func newSessionServiceFixture(ctrl *gomock.Controller) *sessionServiceFixture {
	f := &sessionServiceFixture{
		users:    mocks.NewMockUserRepository(ctrl),
		tokens:   mocks.NewMockTokenRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		issuer:   mocks.NewMockTokenGenerator(ctrl),
		cache:    mocks.NewMockBlacklistCache(ctrl),
		auditor:  mocks.NewMockAuditRecorder(ctrl),
	}

	f.svc = service.NewSessionService(
		f.users, f.tokens, f.sessions, f.issuer, f.cache, f.auditor,
		&config.Config{MaxActiveRefreshTokens: 15}, logger.New(0),
	)

	return f
}

func testClaims(jti, sessionID, tokenType string) *service.JWTCustomClaims {
	return &service.JWTCustomClaims{
		UserID:    "user-1",
		Email:     "test@example.com",
		Role:      constant.DefaultUserRole,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func testRefreshRecord(jti, rawToken string) *domain.RefreshToken {
	now := time.Now()
	return &domain.RefreshToken{
		JTI:       jti,
		UserID:    "user-1",
		TokenHash: service.HashToken(rawToken),
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}
}

func TestVerifyAccessSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.issuer.EXPECT().
		VerifyAccessToken("raw-access").
		Return(testClaims("access-jti", "session-1", constant.TokenTypeAccess), nil)
	f.cache.EXPECT().Contains(gomock.Any(), "access-jti").Return(false, nil)
	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), "access-jti").Return(false, nil)
	f.sessions.EXPECT().
		GetByID(gomock.Any(), "session-1").
		Return(&domain.Session{ID: "session-1", UserID: "user-1", Active: true}, nil)

	identity, err := f.svc.VerifyAccess(context.Background(), "raw-access")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "test@example.com", identity.Email)
	assert.Equal(t, constant.DefaultUserRole, identity.Role)
	assert.Equal(t, "session-1", identity.SessionID)
	assert.Equal(t, "access-jti", identity.TokenID)
}

func TestVerifyAccessBlacklistedInCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	// A cache hit short-circuits: no store lookup at all.
	f.issuer.EXPECT().
		VerifyAccessToken("raw-access").
		Return(testClaims("access-jti", "session-1", constant.TokenTypeAccess), nil)
	f.cache.EXPECT().Contains(gomock.Any(), "access-jti").Return(true, nil)

	_, err := f.svc.VerifyAccess(context.Background(), "raw-access")
	assert.ErrorIs(t, err, autherror.ErrTokenRevoked)
}

func TestVerifyAccessBlacklistedInStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.issuer.EXPECT().
		VerifyAccessToken("raw-access").
		Return(testClaims("access-jti", "session-1", constant.TokenTypeAccess), nil)
	f.cache.EXPECT().Contains(gomock.Any(), "access-jti").Return(false, nil)
	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), "access-jti").Return(true, nil)
	// The store hit backfills the cache.
	f.cache.EXPECT().Add(gomock.Any(), "access-jti", gomock.Any()).Return(nil)

	_, err := f.svc.VerifyAccess(context.Background(), "raw-access")
	assert.ErrorIs(t, err, autherror.ErrTokenRevoked)
}

func TestVerifyAccessCacheDownFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.issuer.EXPECT().
		VerifyAccessToken("raw-access").
		Return(testClaims("access-jti", "session-1", constant.TokenTypeAccess), nil)
	f.cache.EXPECT().Contains(gomock.Any(), "access-jti").Return(false, assert.AnError)
	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), "access-jti").Return(false, nil)
	f.sessions.EXPECT().
		GetByID(gomock.Any(), "session-1").
		Return(&domain.Session{ID: "session-1", Active: true}, nil)

	_, err := f.svc.VerifyAccess(context.Background(), "raw-access")
	assert.NoError(t, err)
}

func TestVerifyAccessInactiveSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.issuer.EXPECT().
		VerifyAccessToken("raw-access").
		Return(testClaims("access-jti", "session-1", constant.TokenTypeAccess), nil)
	f.cache.EXPECT().Contains(gomock.Any(), "access-jti").Return(false, nil)
	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), "access-jti").Return(false, nil)
	f.sessions.EXPECT().
		GetByID(gomock.Any(), "session-1").
		Return(&domain.Session{ID: "session-1", Active: false}, nil)

	_, err := f.svc.VerifyAccess(context.Background(), "raw-access")
	assert.ErrorIs(t, err, autherror.ErrTokenRevoked)
}

func TestRefreshSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "raw-refresh")
	newPair := &domain.TokenPair{
		AccessToken:      "new-access",
		RefreshToken:     "new-refresh",
		AccessJTI:        "new-access-jti",
		RefreshJTI:       "new-refresh-jti",
		IssuedAt:         time.Now(),
		RefreshExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)
	f.tokens.EXPECT().
		RevokeAndBlacklist(gomock.Any(), "old-jti", constant.TokenTypeRefresh, constant.ReasonRotated).
		Return(true, nil)
	f.cache.EXPECT().Add(gomock.Any(), "old-jti", gomock.Any()).Return(nil)
	f.sessions.EXPECT().
		GetByID(gomock.Any(), "session-1").
		Return(&domain.Session{ID: "session-1", UserID: "user-1", Active: true}, nil)
	f.users.EXPECT().
		GetByID(gomock.Any(), "user-1").
		Return(&domain.User{ID: "user-1", Email: "test@example.com", Role: constant.DefaultUserRole}, nil)
	f.issuer.EXPECT().
		Generate("user-1", "test@example.com", constant.DefaultUserRole, "session-1").
		Return(newPair, nil)
	f.tokens.EXPECT().
		Store(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			assert.Equal(t, "new-refresh-jti", rt.JTI)
			assert.Equal(t, service.HashToken("new-refresh"), rt.TokenHash)
			return nil
		})
	f.sessions.EXPECT().RotateRefreshJTI(gomock.Any(), "session-1", "new-refresh-jti").Return(nil)
	f.auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	resp, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "new-refresh", resp.RefreshToken)
}

func TestRefreshReplayOfConsumedToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "raw-refresh")
	record.Revoked = true
	record.RevokedReason = constant.ReasonRotated

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)
	f.auditor.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event domain.AuditEvent) {
			assert.Equal(t, constant.AuditTokenReuseDetected, event.Action)
			assert.Equal(t, "old-jti", event.EntityID)
		})

	_, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	assert.ErrorIs(t, err, autherror.ErrTokenRevoked)
}

func TestRefreshLosesClaimRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "raw-refresh")

	// The record read saw a live token but the conditional write found
	// it already claimed. The loser gets no successor pair.
	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)
	f.tokens.EXPECT().
		RevokeAndBlacklist(gomock.Any(), "old-jti", constant.TokenTypeRefresh, constant.ReasonRotated).
		Return(false, nil)
	f.auditor.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event domain.AuditEvent) {
			assert.Equal(t, constant.AuditTokenReuseDetected, event.Action)
		})

	_, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	assert.ErrorIs(t, err, autherror.ErrTokenRevoked)
}

func TestRefreshUnknownToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("missing-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "missing-jti").Return(nil, nil)

	_, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	assert.ErrorIs(t, err, autherror.ErrRefreshTokenNotFound)
}

func TestRefreshHashMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "a-different-raw-token")

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)

	_, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
}

func TestRefreshExpiredRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "raw-refresh")
	record.ExpiresAt = time.Now().Add(-time.Minute)

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)

	_, err := f.svc.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "raw-refresh"})
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
}

func TestLogout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	record := testRefreshRecord("old-jti", "raw-refresh")

	f.issuer.EXPECT().
		VerifyRefreshToken("raw-refresh").
		Return(testClaims("old-jti", "session-1", constant.TokenTypeRefresh), nil)
	f.tokens.EXPECT().GetByJTI(gomock.Any(), "old-jti").Return(record, nil)
	f.tokens.EXPECT().
		RevokeAndBlacklist(gomock.Any(), "old-jti", constant.TokenTypeRefresh, constant.ReasonLogout).
		Return(true, nil)
	f.cache.EXPECT().Add(gomock.Any(), "old-jti", gomock.Any()).Return(nil)
	f.sessions.EXPECT().DeactivateByRefreshJTI(gomock.Any(), "old-jti").Return(nil)
	f.auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	err := f.svc.Logout(context.Background(), "raw-refresh")
	assert.NoError(t, err)
}

func TestLogoutAllKeepsCurrentSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.sessions.EXPECT().
		GetByID(gomock.Any(), "session-1").
		Return(&domain.Session{ID: "session-1", UserID: "user-1", RefreshTokenJTI: "current-jti", Active: true}, nil)
	f.tokens.EXPECT().
		RevokeAllByUser(gomock.Any(), "user-1", "current-jti", constant.ReasonLogout).
		Return(3, nil)
	f.sessions.EXPECT().DeactivateAllByUser(gomock.Any(), "user-1", "session-1").Return(3, nil)
	f.auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	revoked, err := f.svc.LogoutAll(context.Background(), &domain.Identity{
		UserID:    "user-1",
		SessionID: "session-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, revoked)
}

func TestForceLogoutRevokesEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	f.tokens.EXPECT().
		RevokeAllByUser(gomock.Any(), "user-2", "", constant.ReasonAdminRevoke).
		Return(4, nil)
	f.sessions.EXPECT().DeactivateAllByUser(gomock.Any(), "user-2", "").Return(4, nil)
	f.auditor.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event domain.AuditEvent) {
			require.NotNil(t, event.ActorID)
			assert.Equal(t, "admin-1", *event.ActorID)
		})

	revoked, err := f.svc.ForceLogout(context.Background(), "admin-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, 4, revoked)
}

func TestListSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newSessionServiceFixture(ctrl)

	now := time.Now()
	f.sessions.EXPECT().
		ListActiveByUser(gomock.Any(), "user-1").
		Return([]domain.Session{
			{ID: "session-1", IPAddress: "10.0.0.1", UserAgent: "agent-a", CreatedAt: now, LastUsedAt: now},
			{ID: "session-2", IPAddress: "10.0.0.2", UserAgent: "agent-b", CreatedAt: now, LastUsedAt: now},
		}, nil)

	out, err := f.svc.ListSessions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "session-1", out[0].ID)
	assert.Equal(t, "10.0.0.2", out[1].IPAddress)
}
