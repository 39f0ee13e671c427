package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// Setup wires services and handlers over db and mounts them under /api.
func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	plans := services.NewPlanService(db)
	subscriptions := services.NewSubscriptionService(db, plans)

	authHandler := handlers.NewAuthHandler(services.NewAuthService(db, cfg))
	healthHandler := handlers.NewHealthHandler(db)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptions, plans)
	savedItemsHandler := handlers.NewSavedItemsHandler(services.NewSavedItemsService(db))
	productHandler := handlers.NewProductHandler(services.NewProductService(db))
	webhookHandler := handlers.NewWebhookHandler(subscriptions, cfg.RevenueCatWebhookAuth)

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(rateLimit(60))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(rateLimit(10))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Plans are public so the paywall can render before login.
	api.Get("/subscriptions/plans", subscriptionHandler.Plans)
	api.Get("/subscriptions/status", middleware.JWTProtected(cfg), subscriptionHandler.Status)
	api.Post("/subscriptions/purchase", middleware.JWTProtected(cfg), subscriptionHandler.Purchase)

	api.Get("/users/saved-items", middleware.JWTProtected(cfg), savedItemsHandler.List)
	api.Post("/users/saved-items", middleware.JWTProtected(cfg), savedItemsHandler.Sync)

	api.Get("/products/barcode/:barcode", middleware.JWTProtected(cfg), productHandler.ScanBarcode)

	// Webhooks use their own shared-secret auth, not JWT.
	api.Post("/webhooks/revenuecat", webhookHandler.HandleRevenueCat)
}

func rateLimit(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               perMinute,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		},
	})
}
