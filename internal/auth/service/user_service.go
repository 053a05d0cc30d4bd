package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cardinalconseils/chefsocial-auth/config"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

type UserService struct {
	users    domain.UserRepository
	tokens   domain.TokenRepository
	sessions domain.SessionRepository
	issuer   TokenGenerator
	security *SecurityService
	auditor  domain.AuditRecorder
	cfg      *config.Config
	log      *logger.Logger
}

func NewUserService(
	users domain.UserRepository,
	tokens domain.TokenRepository,
	sessions domain.SessionRepository,
	issuer TokenGenerator,
	security *SecurityService,
	auditor domain.AuditRecorder,
	cfg *config.Config,
	log *logger.Logger,
) *UserService {
	return &UserService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		issuer:   issuer,
		security: security,
		auditor:  auditor,
		cfg:      cfg,
		log:      log.Component("user_service"),
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         constant.DefaultUserRole,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The repository maps a unique violation to ErrEmailAlreadyInUse,
	// so a retried registration fails cleanly instead of double-creating.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.issueSession(ctx, user, input.Fingerprint, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &user.ID,
		Action:     constant.AuditUserRegister,
		EntityType: "user",
		EntityID:   user.ID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})

	return &dto.AuthResponse{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Gate the attempt before any credential work. A locked account is
	// rejected even with the correct password.
	if err := s.security.CheckBlocked(ctx, email, input.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		s.recordFailure(ctx, email, input, constant.FailureUnknownEmail)
		return nil, autherror.ErrInvalidCredentials
	}

	allowed, err := s.security.IsIPAllowed(ctx, user.ID, input.IPAddress)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.recordFailure(ctx, email, input, constant.FailureIPBlocked)
		s.auditor.Record(ctx, domain.AuditEvent{
			ActorID:    &user.ID,
			Action:     constant.AuditLoginIPBlocked,
			EntityType: "user",
			EntityID:   user.ID,
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
		})
		return nil, autherror.ErrIPBlocked
	}

	if user.Status != domain.UserStatusActive {
		s.recordFailure(ctx, email, input, constant.FailureLocked)
		return nil, autherror.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		s.recordFailure(ctx, email, input, constant.FailureWrongPassword)
		s.auditor.Record(ctx, domain.AuditEvent{
			Action:     constant.AuditLoginFailure,
			EntityType: "user",
			EntityID:   email,
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
		})
		return nil, autherror.ErrInvalidCredentials
	}

	pair, err := s.issueSession(ctx, user, input.Fingerprint, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.security.RecordSuccess(ctx, email, input.IPAddress); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &user.ID,
		Action:     constant.AuditLoginSuccess,
		EntityType: "user",
		EntityID:   user.ID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// issueSession mints a token pair and persists the refresh record plus
// its session, then enforces the per-user active-token cap.
func (s *UserService) issueSession(ctx context.Context, user *domain.User, fingerprint, ip, userAgent string) (*domain.TokenPair, error) {
	sessionID := uuid.NewString()

	pair, err := s.issuer.Generate(user.ID, user.Email, user.Role, sessionID)
	if err != nil {
		return nil, err
	}

	refreshToken := &domain.RefreshToken{
		JTI:       pair.RefreshJTI,
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		IssuedAt:  pair.IssuedAt,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: pair.IssuedAt,
	}
	if err := s.tokens.Store(ctx, refreshToken); err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:                sessionID,
		UserID:            user.ID,
		RefreshTokenJTI:   pair.RefreshJTI,
		IPAddress:         ip,
		UserAgent:         userAgent,
		DeviceFingerprint: fingerprint,
		Active:            true,
		CreatedAt:         pair.IssuedAt,
		LastUsedAt:        pair.IssuedAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	count, err := s.tokens.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active tokens: %w", err)
	}
	if count > s.cfg.MaxActiveRefreshTokens {
		if err := s.tokens.RevokeOldestByUser(ctx, user.ID, constant.ReasonSuperseded); err != nil {
			s.log.Warn("failed to revoke oldest refresh token", "user_id", user.ID, "error", err)
		}
	}

	return pair, nil
}

func (s *UserService) recordFailure(ctx context.Context, email string, input dto.LoginInput, reason string) {
	if err := s.security.RecordFailure(ctx, email, input.IPAddress, reason); err != nil {
		s.log.Error("failed to record login failure", "email", email, "error", err)
	}
}
