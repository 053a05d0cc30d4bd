package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/dto"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/service"
)

// AdminHandler serves the admin-scoped security surface: IP
// restrictions, session inspection and forced logout.
type AdminHandler struct {
	sessionService  *service.SessionService
	securityService *service.SecurityService
}

func NewAdminHandler(sessionService *service.SessionService, securityService *service.SecurityService) *AdminHandler {
	return &AdminHandler{sessionService: sessionService, securityService: securityService}
}

func (h *AdminHandler) CreateRestriction(c *fiber.Ctx) error {
	identity := c.Locals(IdentityKey).(*domain.Identity)

	var input dto.CreateRestrictionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	restriction, err := h.securityService.CreateRestriction(c.Context(), identity.UserID, input)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(restriction)
}

func (h *AdminHandler) ListRestrictions(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		userID = c.Params("id")
	}
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	restrictions, err := h.securityService.ListRestrictions(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"restrictions": restrictions})
}

func (h *AdminHandler) GetUserSessions(c *fiber.Ctx) error {
	sessions, err := h.sessionService.ListSessions(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sessions": sessions})
}

func (h *AdminHandler) ForceLogout(c *fiber.Ctx) error {
	identity := c.Locals(IdentityKey).(*domain.Identity)

	revoked, err := h.sessionService.ForceLogout(c.Context(), identity.UserID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"revoked_sessions": revoked})
}
