package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/service"
)

type AuthHandler struct {
	userService    *service.UserService
	sessionService *service.SessionService
}

func NewAuthHandler(userService *service.UserService, sessionService *service.SessionService) *AuthHandler {
	return &AuthHandler{userService: userService, sessionService: sessionService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if fields := validateRegister(input); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fields,
		})
	}

	captureMeta(c, &input.Fingerprint, &input.IPAddress, &input.UserAgent)

	resp, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	captureMeta(c, &input.Fingerprint, &input.IPAddress, &input.UserAgent)

	tokens, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Verify returns the identity attached by RequireAuth. Collaborating
// services consume exactly this contract and never inspect tokens
// themselves.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	identity := c.Locals(IdentityKey).(*domain.Identity)
	return c.Status(fiber.StatusOK).JSON(identity)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	captureMeta(c, &input.Fingerprint, &input.IPAddress, &input.UserAgent)

	tokens, err := h.sessionService.Refresh(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.sessionService.Logout(c.Context(), input.RefreshToken); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	identity := c.Locals(IdentityKey).(*domain.Identity)

	revoked, err := h.sessionService.LogoutAll(c.Context(), identity)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"revoked_sessions": revoked})
}

func (h *AuthHandler) GetSessions(c *fiber.Ctx) error {
	identity := c.Locals(IdentityKey).(*domain.Identity)

	sessions, err := h.sessionService.ListSessions(c.Context(), identity.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sessions": sessions})
}

func validateRegister(input dto.RegisterInput) map[string]string {
	fields := map[string]string{}
	if !strings.Contains(input.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(input.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	return fields
}

func captureMeta(c *fiber.Ctx, fingerprint, ip, userAgent *string) {
	*fingerprint = c.Get("X-Device-Fingerprint")
	*ip = c.IP()
	*userAgent = string(c.Request().Header.UserAgent())
}
