package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/logger"
)

// Auditor writes audit events best-effort: a failed write never fails
// the operation being audited, but it is logged at error level with the
// full event so the alerting pipeline picks it up rather than the
// record vanishing silently.
type Auditor struct {
	repo domain.AuditRepository
	log  *logger.Logger
}

func NewAuditor(repo domain.AuditRepository, log *logger.Logger) *Auditor {
	return &Auditor{repo: repo, log: log.Component("audit")}
}

func (a *Auditor) Record(ctx context.Context, event domain.AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := a.repo.Insert(ctx, &event); err != nil {
		a.log.Error("failed to write audit event",
			"error", err,
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"ip", event.IPAddress,
		)
	}
}
