package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
)

type SecurityRepository struct {
	db DB
}

func NewSecurityRepository(db DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

func (r *SecurityRepository) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful, failure_reason)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`

	_, err := r.db.Exec(ctx, query,
		attempt.ID, attempt.Email, attempt.IPAddress, attempt.AttemptTime,
		attempt.Successful, attempt.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

// CountRecentFailures counts failed attempts for the email or IP
// recorded after since. Only failures within window of the newest
// failure count toward the total, so the count stays stable after the
// triggering burst slides out of the window and a block anchored at the
// newest failure remains decidable for as long as since reaches back.
// History is never deleted on a successful login; failures older than
// the email's last success are excluded instead.
func (r *SecurityRepository) CountRecentFailures(ctx context.Context, email, ip string, since time.Time, window time.Duration) (int, time.Time, error) {
	query := `
		WITH failures AS (
			SELECT attempt_time
			FROM login_attempts
			WHERE (email = $1 OR ip_address = $2)
			  AND successful = FALSE
			  AND attempt_time > $3
			  AND attempt_time > COALESCE(
				(SELECT MAX(attempt_time) FROM login_attempts WHERE email = $1 AND successful = TRUE),
				to_timestamp(0))
		)
		SELECT
			COUNT(*) FILTER (WHERE attempt_time > (SELECT MAX(attempt_time) FROM failures) - make_interval(secs => $4)),
			COALESCE(MAX(attempt_time), to_timestamp(0))
		FROM failures`

	var count int
	var lastFailure time.Time
	if err := r.db.QueryRow(ctx, query, email, ip, since, window.Seconds()).Scan(&count, &lastFailure); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count failed login attempts: %w", err)
	}

	return count, lastFailure, nil
}

func (r *SecurityRepository) ListActiveRestrictions(ctx context.Context, userID string) ([]domain.SecurityRestriction, error) {
	query := `
		SELECT id, user_id, type, value, active, expires_at, notes, created_at
		FROM security_restrictions
		WHERE user_id = $1 AND active = TRUE AND (expires_at IS NULL OR expires_at > now())`

	return r.queryRestrictions(ctx, query, userID)
}

func (r *SecurityRepository) CreateRestriction(ctx context.Context, restriction *domain.SecurityRestriction) error {
	query := `
		INSERT INTO security_restrictions (id, user_id, type, value, active, expires_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		restriction.ID, restriction.UserID, restriction.Type, restriction.Value,
		restriction.Active, restriction.ExpiresAt, restriction.Notes, restriction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create security restriction: %w", err)
	}

	return nil
}

func (r *SecurityRepository) ListRestrictionsByUser(ctx context.Context, userID string) ([]domain.SecurityRestriction, error) {
	query := `
		SELECT id, user_id, type, value, active, expires_at, notes, created_at
		FROM security_restrictions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.queryRestrictions(ctx, query, userID)
}

func (r *SecurityRepository) queryRestrictions(ctx context.Context, query string, args ...any) ([]domain.SecurityRestriction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list security restrictions: %w", err)
	}
	defer rows.Close()

	var restrictions []domain.SecurityRestriction
	for rows.Next() {
		var sr domain.SecurityRestriction
		if err := rows.Scan(
			&sr.ID, &sr.UserID, &sr.Type, &sr.Value, &sr.Active,
			&sr.ExpiresAt, &sr.Notes, &sr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan security restriction: %w", err)
		}
		restrictions = append(restrictions, sr)
	}

	return restrictions, rows.Err()
}

func (r *SecurityRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE attempt_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge login attempts: %w", err)
	}

	return tag.RowsAffected(), nil
}
