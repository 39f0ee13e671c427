package middleware

import (
	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies the HS256 access token and stores it in locals
// under "user".
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error": dto.APIError{
					Code:    dto.CodeUnauthorized,
					Message: "Unauthorized: invalid or expired token",
				},
			})
		},
	})
}
