package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, adminHandler *AdminHandler, mw *Middleware) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Post("/logout", h.Logout)

	v1.Post("/verify", mw.RequireAuth, h.Verify)
	v1.Post("/logout-all", mw.RequireAuth, h.LogoutAll)
	v1.Get("/sessions", mw.RequireAuth, h.GetSessions)

	// Admin-only endpoints
	admin := v1.Group("/admin", mw.RequireAuth, mw.RequireRole(constant.AdminRole))
	admin.Post("/restrictions", adminHandler.CreateRestriction)
	admin.Get("/restrictions", adminHandler.ListRestrictions)
	admin.Get("/users/:id/restrictions", adminHandler.ListRestrictions)
	admin.Get("/users/:id/sessions", adminHandler.GetUserSessions)
	admin.Delete("/users/:id/sessions", adminHandler.ForceLogout)
}
