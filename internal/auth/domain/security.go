package domain

import "time"

type LoginAttempt struct {
	ID            string
	Email         string
	IPAddress     string
	AttemptTime   time.Time
	Successful    bool
	FailureReason string
}

// SecurityRestriction is a per-user IP rule. An active ip-block always
// wins; otherwise the presence of any ip-allow rule makes the allow
// list exclusive.
type SecurityRestriction struct {
	ID        string
	UserID    string
	Type      string
	Value     string
	Active    bool
	ExpiresAt *time.Time
	Notes     string
	CreatedAt time.Time
}

// AuditEvent is append-only. Application code never mutates or deletes
// rows once written.
type AuditEvent struct {
	ID         string
	ActorID    *string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}
