package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SavedItemsHandler struct {
	savedItems *services.SavedItemsService
}

func NewSavedItemsHandler(savedItems *services.SavedItemsService) *SavedItemsHandler {
	return &SavedItemsHandler{savedItems: savedItems}
}

func (h *SavedItemsHandler) Sync(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	var req dto.SyncSavedItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	synced, err := h.savedItems.Sync(userID, req.Items)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSavedItem) {
			return fail(c, fiber.StatusBadRequest, dto.CodeInvalidSavedItem, err.Error())
		}
		slog.Error("saved items sync failed", "user_id", userID, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to sync saved items")
	}

	return respond(c, fiber.StatusOK, dto.SyncSavedItemsResponse{Success: true, Synced: synced})
}

func (h *SavedItemsHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	items, err := h.savedItems.List(userID)
	if err != nil {
		slog.Error("list saved items failed", "user_id", userID, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to load saved items")
	}
	return respond(c, fiber.StatusOK, dto.SyncSavedItemsRequest{Items: items})
}
