package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
)

type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_jti, ip_address, user_agent, device_fingerprint, active, created_at, last_used_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenJTI, &s.IPAddress, &s.UserAgent,
		&s.DeviceFingerprint, &s.Active, &s.CreatedAt, &s.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_jti, ip_address, user_agent, device_fingerprint, active, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.RefreshTokenJTI, session.IPAddress,
		session.UserAgent, session.DeviceFingerprint, session.Active,
		session.CreatedAt, session.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 LIMIT 1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND active = TRUE
		ORDER BY last_used_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.RefreshTokenJTI, &s.IPAddress, &s.UserAgent,
			&s.DeviceFingerprint, &s.Active, &s.CreatedAt, &s.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SessionRepository) RotateRefreshJTI(ctx context.Context, sessionID, newJTI string) error {
	query := `
		UPDATE sessions
		SET refresh_token_jti = $2, last_used_at = now()
		WHERE id = $1 AND active = TRUE`

	_, err := r.db.Exec(ctx, query, sessionID, newJTI)
	if err != nil {
		return fmt.Errorf("failed to rotate session refresh token: %w", err)
	}

	return nil
}

func (r *SessionRepository) DeactivateByRefreshJTI(ctx context.Context, jti string) error {
	query := `UPDATE sessions SET active = FALSE WHERE refresh_token_jti = $1`

	_, err := r.db.Exec(ctx, query, jti)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	return nil
}

func (r *SessionRepository) DeactivateAllByUser(ctx context.Context, userID, exceptSessionID string) (int, error) {
	query := `
		UPDATE sessions
		SET active = FALSE
		WHERE user_id = $1 AND active = TRUE AND ($2 = '' OR id::text <> $2)`

	tag, err := r.db.Exec(ctx, query, userID, exceptSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate sessions for user: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// DeleteInactiveBefore drops sessions that were deactivated or whose
// refresh lineage expired before the cutoff.
func (r *SessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE active = FALSE AND last_used_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
