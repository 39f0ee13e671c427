package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *dto.APIError `json:"error,omitempty"`
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(envelope{Error: &dto.APIError{Code: code, Message: message}})
}

// ErrorHandler renders errors that escape a handler. Details of 5xx errors
// are logged, not returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}

	if status >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return fail(c, status, codeForStatus(status), message)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return dto.CodeBadRequest
	case fiber.StatusUnauthorized:
		return dto.CodeUnauthorized
	case fiber.StatusNotFound:
		return dto.CodeNotFound
	case fiber.StatusConflict:
		return dto.CodeConflict
	case fiber.StatusTooManyRequests:
		return dto.CodeRateLimited
	}
	if status >= 500 {
		return dto.CodeInternal
	}
	return dto.CodeBadRequest
}
