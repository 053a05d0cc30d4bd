package service

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/cardinalconseils/chefsocial-auth/config"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

// SecurityService owns the failed-attempt guard and the per-user IP
// restriction rules.
type SecurityService struct {
	repo    domain.SecurityRepository
	auditor domain.AuditRecorder
	cfg     *config.Config
}

func NewSecurityService(repo domain.SecurityRepository, auditor domain.AuditRecorder, cfg *config.Config) *SecurityService {
	return &SecurityService{repo: repo, auditor: auditor, cfg: cfg}
}

// CheckBlocked returns a RateLimitError while a lockout is active: the
// configured number of failures inside the attempt window blocks the
// email and IP until LoginBlockDuration has passed since the newest
// failure. The lookback spans the block duration rather than the
// counting window, so the block holds after the triggering failures age
// out of the window. The decision is made before any password work, so
// a blocked attempt is rejected even with correct credentials.
func (s *SecurityService) CheckBlocked(ctx context.Context, email, ip string) error {
	since := time.Now().Add(-s.cfg.LoginBlockDuration())

	count, lastFailure, err := s.repo.CountRecentFailures(ctx, email, ip, since, s.cfg.LoginAttemptWindow())
	if err != nil {
		return fmt.Errorf("failed to evaluate login attempts: %w", err)
	}

	if count < s.cfg.LoginMaxAttempts {
		return nil
	}

	blockedUntil := lastFailure.Add(s.cfg.LoginBlockDuration())
	retryAfter := time.Until(blockedUntil)
	if retryAfter <= 0 {
		return nil
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		Action:     constant.AuditLoginLocked,
		EntityType: "user",
		EntityID:   email,
		Details:    fmt.Sprintf("blocked until %s after %d failures", blockedUntil.Format(time.RFC3339), count),
		IPAddress:  ip,
	})

	return &autherror.RateLimitError{RetryAfter: retryAfter}
}

func (s *SecurityService) RecordFailure(ctx context.Context, email, ip, reason string) error {
	return s.repo.RecordLoginAttempt(ctx, &domain.LoginAttempt{
		ID:            uuid.NewString(),
		Email:         email,
		IPAddress:     ip,
		AttemptTime:   time.Now(),
		Successful:    false,
		FailureReason: reason,
	})
}

// RecordSuccess inserts the success marker that resets the active
// failure window. History is kept for audit; only counting changes.
func (s *SecurityService) RecordSuccess(ctx context.Context, email, ip string) error {
	return s.repo.RecordLoginAttempt(ctx, &domain.LoginAttempt{
		ID:          uuid.NewString(),
		Email:       email,
		IPAddress:   ip,
		AttemptTime: time.Now(),
		Successful:  true,
	})
}

// IsIPAllowed evaluates the user's restriction rules for the caller's
// IP. An active ip-block match denies regardless of the allow list;
// otherwise the presence of any ip-allow rule makes the list exclusive.
func (s *SecurityService) IsIPAllowed(ctx context.Context, userID, ip string) (bool, error) {
	restrictions, err := s.repo.ListActiveRestrictions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load security restrictions: %w", err)
	}

	hasAllowList := false
	allowed := false

	for _, r := range restrictions {
		match := ipMatches(r.Value, ip)
		switch r.Type {
		case constant.RestrictionIPBlock:
			if match {
				return false, nil
			}
		case constant.RestrictionIPAllow:
			hasAllowList = true
			if match {
				allowed = true
			}
		}
	}

	if hasAllowList {
		return allowed, nil
	}

	return true, nil
}

// ipMatches accepts either an exact IP or a CIDR prefix as the rule
// value.
func ipMatches(rule, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return rule == ip
	}

	if prefix, err := netip.ParsePrefix(rule); err == nil {
		return prefix.Contains(addr)
	}

	ruleAddr, err := netip.ParseAddr(rule)
	if err != nil {
		return false
	}

	return ruleAddr == addr
}

func (s *SecurityService) CreateRestriction(ctx context.Context, actorID string, input dto.CreateRestrictionInput) (*dto.RestrictionOutput, error) {
	if input.Type != constant.RestrictionIPAllow && input.Type != constant.RestrictionIPBlock {
		return nil, fmt.Errorf("unknown restriction type %q", input.Type)
	}
	if input.UserID == "" || input.Value == "" {
		return nil, fmt.Errorf("user_id and value are required")
	}

	restriction := &domain.SecurityRestriction{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Type:      input.Type,
		Value:     input.Value,
		Active:    true,
		ExpiresAt: input.ExpiresAt,
		Notes:     input.Notes,
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateRestriction(ctx, restriction); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEvent{
		ActorID:    &actorID,
		Action:     constant.AuditRestrictionCreated,
		EntityType: "security_restriction",
		EntityID:   restriction.ID,
		Details:    fmt.Sprintf("%s %s for user %s", restriction.Type, restriction.Value, restriction.UserID),
	})

	return restrictionOutput(restriction), nil
}

func (s *SecurityService) ListRestrictions(ctx context.Context, userID string) ([]dto.RestrictionOutput, error) {
	restrictions, err := s.repo.ListRestrictionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RestrictionOutput, 0, len(restrictions))
	for i := range restrictions {
		out = append(out, *restrictionOutput(&restrictions[i]))
	}

	return out, nil
}

func restrictionOutput(r *domain.SecurityRestriction) *dto.RestrictionOutput {
	return &dto.RestrictionOutput{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      r.Type,
		Value:     r.Value,
		Active:    r.Active,
		ExpiresAt: r.ExpiresAt,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}
