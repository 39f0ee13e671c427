package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	plans         *services.PlanService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, plans *services.PlanService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, plans: plans}
}

func (h *SubscriptionHandler) Plans(c *fiber.Ctx) error {
	plans, err := h.plans.List()
	if err != nil {
		slog.Error("list plans failed", "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to load plans")
	}
	return respond(c, fiber.StatusOK, dto.PlansResponse{Plans: plans})
}

func (h *SubscriptionHandler) Status(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	status, err := h.subscriptions.Status(userID, time.Now().In(clientZone(c)))
	if err != nil {
		slog.Error("subscription status failed", "user_id", userID, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to load subscription")
	}
	return respond(c, fiber.StatusOK, status)
}

func (h *SubscriptionHandler) Purchase(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	var req dto.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}

	resp, err := h.subscriptions.Purchase(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPlanNotFound):
			return fail(c, fiber.StatusNotFound, dto.CodePlanNotFound, err.Error())
		case errors.Is(err, services.ErrInvalidPayment):
			return fail(c, fiber.StatusBadRequest, dto.CodePaymentRejected, err.Error())
		}
		slog.Error("purchase failed", "user_id", userID, "plan_id", req.PlanID, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to activate subscription")
	}

	slog.Info("subscription purchased", "user_id", userID, "plan_id", req.PlanID, "payment_method", req.PaymentMethod)
	return respond(c, fiber.StatusOK, resp)
}

// maxZoneOffset bounds tzOffset to real-world UTC offsets, in minutes.
const maxZoneOffset = 14 * 60

// clientZone reads the device's UTC offset from the tzOffset query parameter
// (minutes east of UTC). Missing or out-of-range values fall back to UTC.
func clientZone(c *fiber.Ctx) *time.Location {
	offset := c.QueryInt("tzOffset", 0)
	if offset == 0 || offset < -maxZoneOffset || offset > maxZoneOffset {
		return time.UTC
	}
	return time.FixedZone("client", offset*60)
}
