package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

type TokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (jti, user_id, token_hash, issued_at, expires_at, revoked, revoked_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

	_, err := r.db.Exec(ctx, query,
		token.JTI, token.UserID, token.TokenHash, token.IssuedAt, token.ExpiresAt,
		token.Revoked, token.RevokedReason, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *TokenRepository) GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error) {
	query := `
		SELECT jti, user_id, token_hash, issued_at, expires_at, revoked, COALESCE(revoked_reason, ''), created_at
		FROM refresh_tokens
		WHERE jti = $1
		LIMIT 1`

	var token domain.RefreshToken
	err := r.db.QueryRow(ctx, query, jti).Scan(
		&token.JTI, &token.UserID, &token.TokenHash, &token.IssuedAt, &token.ExpiresAt,
		&token.Revoked, &token.RevokedReason, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &token, nil
}

// RevokeAndBlacklist claims the token with a single conditional
// statement. The CTE revokes only a still-active row and the insert
// copies the token's own expiry onto the blacklist entry, so exactly
// one of any number of concurrent callers observes a row count of 1.
func (r *TokenRepository) RevokeAndBlacklist(ctx context.Context, jti, tokenType, reason string) (bool, error) {
	query := `
		WITH claimed AS (
			UPDATE refresh_tokens
			SET revoked = TRUE, revoked_reason = $2
			WHERE jti = $1 AND revoked = FALSE
			RETURNING jti, expires_at
		)
		INSERT INTO token_blacklist (jti, token_type, reason, blacklisted_at, expires_at)
		SELECT jti, $3, $2, now(), expires_at FROM claimed`

	tag, err := r.db.Exec(ctx, query, jti, reason, tokenType)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *TokenRepository) RevokeAllByUser(ctx context.Context, userID, exceptJTI, reason string) (int, error) {
	query := `
		WITH revoked AS (
			UPDATE refresh_tokens
			SET revoked = TRUE, revoked_reason = $3
			WHERE user_id = $1 AND revoked = FALSE AND ($2 = '' OR jti::text <> $2)
			RETURNING jti, expires_at
		)
		INSERT INTO token_blacklist (jti, token_type, reason, blacklisted_at, expires_at)
		SELECT jti, $4, $3, now(), expires_at FROM revoked`

	tag, err := r.db.Exec(ctx, query, userID, exceptJTI, reason, constant.TokenTypeRefresh)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens for user: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *TokenRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active refresh tokens: %w", err)
	}

	return count, nil
}

func (r *TokenRepository) RevokeOldestByUser(ctx context.Context, userID, reason string) error {
	query := `
		WITH oldest AS (
			SELECT jti FROM refresh_tokens
			WHERE user_id = $1 AND revoked = FALSE
			ORDER BY created_at ASC
			LIMIT 1
		), claimed AS (
			UPDATE refresh_tokens
			SET revoked = TRUE, revoked_reason = $2
			WHERE jti IN (SELECT jti FROM oldest) AND revoked = FALSE
			RETURNING jti, expires_at
		)
		INSERT INTO token_blacklist (jti, token_type, reason, blacklisted_at, expires_at)
		SELECT jti, $3, $2, now(), expires_at FROM claimed`

	_, err := r.db.Exec(ctx, query, userID, reason, constant.TokenTypeRefresh)
	if err != nil {
		return fmt.Errorf("failed to revoke oldest refresh token: %w", err)
	}

	return nil
}

func (r *TokenRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}

	return exists, nil
}

// DeleteExpiredBlacklist removes entries whose own expiry has passed.
// An entry is never removed before its token would have expired anyway.
func (r *TokenRepository) DeleteExpiredBlacklist(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge token blacklist: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
