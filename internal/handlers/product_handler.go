package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	products *services.ProductService
}

func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) ScanBarcode(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, "Unauthorized")
	}

	barcode := c.Params("barcode")
	resp, err := h.products.LookupBarcode(userID, barcode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidBarcode):
			return fail(c, fiber.StatusBadRequest, dto.CodeInvalidBarcode, err.Error())
		case errors.Is(err, services.ErrProductNotFound):
			return fail(c, fiber.StatusNotFound, dto.CodeProductNotFound, err.Error())
		}
		slog.Error("barcode lookup failed", "barcode", barcode, "error", err)
		return fail(c, fiber.StatusInternalServerError, dto.CodeInternal, "Failed to look up product")
	}
	return respond(c, fiber.StatusOK, resp)
}
