package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	expectedAuth        string
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, expectedAuth string) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		expectedAuth:        expectedAuth,
	}
}

// HandleRevenueCat applies store subscription events. Events for unknown
// accounts are acknowledged so the sender does not retry them.
func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	if h.expectedAuth == "" {
		return fail(c, fiber.StatusNotFound, dto.CodeNotFound, "Webhooks not configured")
	}

	authHeader := c.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(h.expectedAuth)) != 1 {
		return fail(c, fiber.StatusUnauthorized, dto.CodeWebhookRejected, "Unauthorized")
	}

	var webhook dto.RevenueCatWebhook
	if err := c.BodyParser(&webhook); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid webhook payload")
	}

	err := h.subscriptionService.HandleWebhookEvent(&webhook.Event)
	switch {
	case errors.Is(err, services.ErrUnknownAppUser):
		slog.Warn("webhook for unknown app user ignored", "event_type", webhook.Event.Type, "app_user_id", webhook.Event.AppUserID)
	case err != nil:
		slog.Error("webhook processing failed", "event_type", webhook.Event.Type, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to process webhook event")
	default:
		slog.Info("webhook processed", "event_type", webhook.Event.Type)
	}

	return respond(c, fiber.StatusOK, fiber.Map{"received": true})
}
