package service

import (
	"context"
	"time"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
)

// attemptRetention keeps login attempts around well past the active
// window so lockouts remain explainable after the fact.
const attemptRetention = 24 * time.Hour

// CleanupService periodically purges rows that are past their own
// expiry. Every delete is conditioned on row expiry rather than a
// shared cursor, so multiple instances can run it concurrently.
type CleanupService struct {
	tokens   domain.TokenRepository
	sessions domain.SessionRepository
	security domain.SecurityRepository
	interval time.Duration
	log      *logger.Logger
}

func NewCleanupService(
	tokens domain.TokenRepository,
	sessions domain.SessionRepository,
	security domain.SecurityRepository,
	interval time.Duration,
	log *logger.Logger,
) *CleanupService {
	return &CleanupService{
		tokens:   tokens,
		sessions: sessions,
		security: security,
		interval: interval,
		log:      log.Component("cleanup"),
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CleanupService) sweep(ctx context.Context) {
	now := time.Now()

	blacklisted, err := s.tokens.DeleteExpiredBlacklist(ctx, now)
	if err != nil {
		s.log.Error("blacklist purge failed", "error", err)
	}

	tokens, err := s.tokens.DeleteExpiredTokens(ctx, now)
	if err != nil {
		s.log.Error("refresh token purge failed", "error", err)
	}

	sessions, err := s.sessions.DeleteInactiveBefore(ctx, now.Add(-s.interval))
	if err != nil {
		s.log.Error("session purge failed", "error", err)
	}

	attempts, err := s.security.DeleteAttemptsBefore(ctx, now.Add(-attemptRetention))
	if err != nil {
		s.log.Error("login attempt purge failed", "error", err)
	}

	s.log.Info("cleanup sweep finished",
		"blacklist_removed", blacklisted,
		"tokens_removed", tokens,
		"sessions_removed", sessions,
		"attempts_removed", attempts,
	)
}
