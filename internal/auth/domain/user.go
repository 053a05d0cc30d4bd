package domain

import "time"

// UserStatus values. Users referenced by sessions are never hard-deleted,
// only moved to an inactive status.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is what the verify middleware attaches to an authenticated
// request. Collaborating services only ever see this shape.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	TokenID   string `json:"-"`
}
