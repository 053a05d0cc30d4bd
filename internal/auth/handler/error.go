package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
)

// respondError maps service errors onto the HTTP surface. Credential
// and token failures surface as a generic 401 so the API never
// discloses whether an email exists or why exactly a token was refused;
// the detail lives in the audit log.
func respondError(c *fiber.Ctx, err error) error {
	var rateLimited *autherror.RateLimitError
	if errors.As(err, &rateLimited) {
		retryAfter := int(rateLimited.RetryAfter.Seconds())
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "too many failed login attempts",
			"retry_after": retryAfter,
		})
	}

	switch {
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already in use"})
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	case errors.Is(err, autherror.ErrIPBlocked), errors.Is(err, autherror.ErrAccountLocked):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	case errors.Is(err, autherror.ErrTokenMalformed),
		errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrTokenRevoked),
		errors.Is(err, autherror.ErrRefreshTokenNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
