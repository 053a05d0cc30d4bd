package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/service"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

// IdentityKey is the fiber locals key RequireAuth stores the
// authenticated identity under.
const IdentityKey = "identity"

type Middleware struct {
	sessionService  *service.SessionService
	securityService *service.SecurityService
	auditor         domain.AuditRecorder
}

func NewMiddleware(sessionService *service.SessionService, securityService *service.SecurityService, auditor domain.AuditRecorder) *Middleware {
	return &Middleware{
		sessionService:  sessionService,
		securityService: securityService,
		auditor:         auditor,
	}
}

// RequireAuth validates the bearer token and attaches the identity to
// the request. A caller from an IP the user has blocked is rejected
// even with a valid, unexpired token.
func (m *Middleware) RequireAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed authorization header"})
	}

	identity, err := m.sessionService.VerifyAccess(c.Context(), token)
	if err != nil {
		return respondError(c, err)
	}

	allowed, err := m.securityService.IsIPAllowed(c.Context(), identity.UserID, c.IP())
	if err != nil {
		return respondError(c, err)
	}
	if !allowed {
		m.auditor.Record(c.Context(), domain.AuditEvent{
			ActorID:    &identity.UserID,
			Action:     constant.AuditAccessIPBlocked,
			EntityType: "user",
			EntityID:   identity.UserID,
			IPAddress:  c.IP(),
			UserAgent:  string(c.Request().Header.UserAgent()),
		})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}

	c.Locals(IdentityKey, identity)

	return c.Next()
}

// RequireRole gates a route group on the role claim. Must run after
// RequireAuth.
func (m *Middleware) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := c.Locals(IdentityKey).(*domain.Identity)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
		}
		if identity.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role"})
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
