package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cardinalconseils/chefsocial-auth/config"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

// SessionService owns everything stateful about tokens: verification
// against the blacklist and session registry, refresh rotation, logout
// and the session list.
type SessionService struct {
	users    domain.UserRepository
	tokens   domain.TokenRepository
	sessions domain.SessionRepository
	issuer   TokenGenerator
	cache    domain.BlacklistCache
	auditor  domain.AuditRecorder
	cfg      *config.Config
	log      *logger.Logger
}

func NewSessionService(
	users domain.UserRepository,
	tokens domain.TokenRepository,
	sessions domain.SessionRepository,
	issuer TokenGenerator,
	cache domain.BlacklistCache,
	auditor domain.AuditRecorder,
	cfg *config.Config,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		issuer:   issuer,
		cache:    cache,
		auditor:  auditor,
		cfg:      cfg,
		log:      log.Component("session_service"),
	}
}

// VerifyAccess checks signature and expiry first, without touching
// storage, then the blacklist point lookup and the session's active
// flag. The cache holds positives only; a miss falls through to
// Postgres, which stays authoritative.
func (s *SessionService) VerifyAccess(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims, err := s.issuer.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.isBlacklisted(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, autherror.ErrTokenRevoked
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active {
		return nil, autherror.ErrTokenRevoked
	}

	return &domain.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The claim on
// the old token is a single conditional write, so of any number of
// concurrent calls with the same token exactly one wins; the rest see
// ErrTokenRevoked and no successor pair.
func (s *SessionService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	claims, err := s.issuer.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, err
	}

	record, err := s.tokens.GetByJTI(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if !MatchTokenHash(record.TokenHash, input.RefreshToken) {
		return nil, autherror.ErrTokenMalformed
	}

	if record.Revoked {
		// Replay of an already-consumed token. The legitimate rotation
		// has long since won; this caller is deterministically rejected.
		s.auditReuse(ctx, record, input.IPAddress, input.UserAgent)
		return nil, autherror.ErrTokenRevoked
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, autherror.ErrTokenExpired
	}

	claimed, err := s.tokens.RevokeAndBlacklist(ctx, claims.ID, constant.TokenTypeRefresh, constant.ReasonRotated)
	if err != nil {
		return nil, fmt.Errorf("failed to claim refresh token: %w", err)
	}
	if !claimed {
		// Lost the race against a concurrent rotation or revocation.
		s.auditReuse(ctx, record, input.IPAddress, input.UserAgent)
		return nil, autherror.ErrTokenRevoked
	}

	s.cacheBlacklisted(ctx, claims.ID, record.ExpiresAt)

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active {
		return nil, autherror.ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found for token refresh")
	}

	pair, err := s.issuer.Generate(user.ID, user.Email, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	newRecord := &domain.RefreshToken{
		JTI:       pair.RefreshJTI,
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		IssuedAt:  pair.IssuedAt,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: pair.IssuedAt,
	}
	if err := s.tokens.Store(ctx, newRecord); err != nil {
		return nil, fmt.Errorf("failed to store new refresh token: %w", err)
	}

	if err := s.sessions.RotateRefreshJTI(ctx, session.ID, pair.RefreshJTI); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &user.ID,
		Action:     constant.AuditTokenRotated,
		EntityType: "refresh_token",
		EntityID:   claims.ID,
		Details:    fmt.Sprintf("rotated to %s", pair.RefreshJTI),
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the presented refresh token and deactivates its
// session.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	record, err := s.tokens.GetByJTI(ctx, claims.ID)
	if err != nil {
		return err
	}
	if record == nil || !MatchTokenHash(record.TokenHash, refreshToken) {
		return autherror.ErrRefreshTokenNotFound
	}

	revoked, err := s.tokens.RevokeAndBlacklist(ctx, claims.ID, constant.TokenTypeRefresh, constant.ReasonLogout)
	if err != nil {
		return err
	}
	if !revoked {
		return autherror.ErrTokenRevoked
	}

	s.cacheBlacklisted(ctx, claims.ID, record.ExpiresAt)

	if err := s.sessions.DeactivateByRefreshJTI(ctx, claims.ID); err != nil {
		return err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &record.UserID,
		Action:     constant.AuditLogout,
		EntityType: "session",
		EntityID:   claims.SessionID,
	})

	return nil
}

// LogoutAll revokes every active session of the user except the one the
// caller is on ("log out everywhere but here").
func (s *SessionService) LogoutAll(ctx context.Context, identity *domain.Identity) (int, error) {
	exceptJTI := ""
	if identity.SessionID != "" {
		current, err := s.sessions.GetByID(ctx, identity.SessionID)
		if err != nil {
			return 0, err
		}
		if current != nil {
			exceptJTI = current.RefreshTokenJTI
		}
	}

	revoked, err := s.tokens.RevokeAllByUser(ctx, identity.UserID, exceptJTI, constant.ReasonLogout)
	if err != nil {
		return 0, err
	}

	if _, err := s.sessions.DeactivateAllByUser(ctx, identity.UserID, identity.SessionID); err != nil {
		return 0, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &identity.UserID,
		Action:     constant.AuditLogoutAll,
		EntityType: "user",
		EntityID:   identity.UserID,
		Details:    fmt.Sprintf("%d sessions revoked", revoked),
	})

	return revoked, nil
}

// ForceLogout is the admin variant: every session of the target user is
// revoked, including the current one.
func (s *SessionService) ForceLogout(ctx context.Context, actorID, targetUserID string) (int, error) {
	revoked, err := s.tokens.RevokeAllByUser(ctx, targetUserID, "", constant.ReasonAdminRevoke)
	if err != nil {
		return 0, err
	}

	if _, err := s.sessions.DeactivateAllByUser(ctx, targetUserID, ""); err != nil {
		return 0, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &actorID,
		Action:     constant.AuditLogoutAll,
		EntityType: "user",
		EntityID:   targetUserID,
		Details:    fmt.Sprintf("admin revoked %d sessions", revoked),
	})

	return revoked, nil
}

func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]dto.SessionOutput, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, dto.SessionOutput{
			ID:                session.ID,
			IPAddress:         session.IPAddress,
			UserAgent:         session.UserAgent,
			DeviceFingerprint: session.DeviceFingerprint,
			CreatedAt:         session.CreatedAt,
			LastUsedAt:        session.LastUsedAt,
		})
	}

	return out, nil
}

func (s *SessionService) isBlacklisted(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	cached, err := s.cache.Contains(ctx, jti)
	if err != nil {
		s.log.Warn("blacklist cache unavailable, falling back to store", "error", err)
	} else if cached {
		return true, nil
	}

	revoked, err := s.tokens.IsBlacklisted(ctx, jti)
	if err != nil {
		return false, err
	}
	if revoked {
		s.cacheBlacklisted(ctx, jti, expiresAt)
	}

	return revoked, nil
}

func (s *SessionService) cacheBlacklisted(ctx context.Context, jti string, expiresAt time.Time) {
	if err := s.cache.Add(ctx, jti, time.Until(expiresAt)); err != nil {
		s.log.Warn("failed to cache blacklisted token", "jti", jti, "error", err)
	}
}

func (s *SessionService) auditReuse(ctx context.Context, record *domain.RefreshToken, ip, userAgent string) {
	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &record.UserID,
		Action:     constant.AuditTokenReuseDetected,
		EntityType: "refresh_token",
		EntityID:   record.JTI,
		Details:    "attempted reuse of a consumed refresh token",
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}
