package domain

import "time"

// RefreshToken is the persisted record behind an issued refresh token.
// The raw token string never touches storage; only its hash does.
type RefreshToken struct {
	JTI           string
	UserID        string
	TokenHash     []byte
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
	RevokedReason string
	CreatedAt     time.Time
}

// BlacklistEntry marks a token id as revoked until the token would have
// expired on its own. Cleanup must never remove an entry earlier.
type BlacklistEntry struct {
	JTI           string
	TokenType     string
	Reason        string
	BlacklistedAt time.Time
	ExpiresAt     time.Time
}

// TokenPair is the result of a single issuance: both tokens plus the
// metadata callers need to persist the refresh side.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessJTI        string
	RefreshJTI       string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
