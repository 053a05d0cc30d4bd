package postgres

import (
	"context"
	"fmt"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
)

// AuditRepository only inserts. There is deliberately no update or
// delete surface on audit_events.
type AuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, actor_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		event.ID, event.ActorID, event.Action, event.EntityType, event.EntityID,
		event.Details, event.IPAddress, event.UserAgent, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}
