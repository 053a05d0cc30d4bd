package domain

import "time"

// Session is a logical device login. Exactly one non-revoked refresh
// token backs an active session; rotation swaps RefreshTokenJTI in place.
type Session struct {
	ID                string
	UserID            string
	RefreshTokenJTI   string
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	Active            bool
	CreatedAt         time.Time
	LastUsedAt        time.Time
}
