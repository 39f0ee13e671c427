package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return fail(c, fiber.StatusConflict, dto.CodeConflict, err.Error())
		case errors.Is(err, services.ErrWeakCredentials):
			return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
		}
		slog.Error("register failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Internal server error")
	}

	return respond(c, fiber.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, err.Error())
		}
		slog.Error("login failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Internal server error")
	}

	return respond(c, fiber.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, err.Error())
		}
		slog.Error("token refresh failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Internal server error")
	}

	return respond(c, fiber.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	if err := h.authService.Logout(userID, &req); err != nil {
		slog.Error("logout failed", "user_id", userID, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to logout")
	}

	return respond(c, fiber.StatusOK, fiber.Map{"message": "Logged out successfully"})
}
