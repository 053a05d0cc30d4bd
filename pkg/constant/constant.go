package constant

const (
	DefaultUserRole = "user"
	AdminRole       = "admin"
)

// Token types recorded on blacklist entries.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Revocation reasons recorded on refresh tokens and blacklist entries.
const (
	ReasonRotated       = "rotated"
	ReasonLogout        = "logout"
	ReasonSuperseded    = "superseded"
	ReasonAdminRevoke   = "admin-revoke"
	ReasonSecurityBlock = "security-block"
)

// Restriction types.
const (
	RestrictionIPAllow = "ip-allow"
	RestrictionIPBlock = "ip-block"
)

// Audit actions.
const (
	AuditUserRegister       = "user.register"
	AuditLoginSuccess       = "login.success"
	AuditLoginFailure       = "login.failure"
	AuditLoginLocked        = "login.locked"
	AuditLoginIPBlocked     = "login.ip_blocked"
	AuditTokenRotated       = "token.rotated"
	AuditTokenReuseDetected = "token.reuse_detected"
	AuditLogout             = "logout"
	AuditLogoutAll          = "logout.all"
	AuditRestrictionCreated = "restriction.created"
	AuditAccessIPBlocked    = "access.ip_blocked"
)

// Login failure reasons.
const (
	FailureWrongPassword = "wrong_password"
	FailureUnknownEmail  = "unknown_email"
	FailureLocked        = "locked"
	FailureIPBlocked     = "ip_blocked"
)
