package domain

//go:generate mockgen -source=interface.go -destination=../../mocks/mock_interface.go -package=mocks

import (
	"context"
	"time"
)

type UserRepository interface {
	// GetByEmail returns (nil, nil) when no user exists for the email.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
}

type TokenRepository interface {
	Store(ctx context.Context, token *RefreshToken) error
	// GetByJTI returns (nil, nil) when no record exists for the jti.
	GetByJTI(ctx context.Context, jti string) (*RefreshToken, error)
	// RevokeAndBlacklist atomically marks the token revoked and inserts
	// a blacklist entry, conditioned on the token still being
	// non-revoked. Returns false when another writer already claimed it.
	RevokeAndBlacklist(ctx context.Context, jti, tokenType, reason string) (bool, error)
	// RevokeAllByUser revokes and blacklists every active refresh token
	// of the user except exceptJTI (pass "" to revoke all).
	RevokeAllByUser(ctx context.Context, userID, exceptJTI, reason string) (int, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	RevokeOldestByUser(ctx context.Context, userID, reason string) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	DeleteExpiredBlacklist(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]Session, error)
	// RotateRefreshJTI points the session at its successor refresh token
	// and bumps last_used_at.
	RotateRefreshJTI(ctx context.Context, sessionID, newJTI string) error
	DeactivateByRefreshJTI(ctx context.Context, jti string) error
	DeactivateAllByUser(ctx context.Context, userID, exceptSessionID string) (int, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SecurityRepository interface {
	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	// CountRecentFailures counts failed attempts for the email or IP
	// recorded after since, keeping only those within window of the
	// newest failure and ignoring failures older than the email's last
	// successful login. Also returns the newest failure time.
	CountRecentFailures(ctx context.Context, email, ip string, since time.Time, window time.Duration) (int, time.Time, error)
	ListActiveRestrictions(ctx context.Context, userID string) ([]SecurityRestriction, error)
	CreateRestriction(ctx context.Context, restriction *SecurityRestriction) error
	ListRestrictionsByUser(ctx context.Context, userID string) ([]SecurityRestriction, error)
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditRepository interface {
	Insert(ctx context.Context, event *AuditEvent) error
}

// AuditRecorder is the best-effort audit hook services call on every
// security-relevant operation. Implementations must never fail the
// primary operation.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// BlacklistCache fronts the durable blacklist with a TTL point lookup.
type BlacklistCache interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}
