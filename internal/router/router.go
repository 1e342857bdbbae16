package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/flagwatch/flagwatch-go/internal/handler"
	"github.com/flagwatch/flagwatch-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Abuse  *handler.AbuseHandler
	Health *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics (outside the API group, no rate limiting)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	api := app.Group("/api")

	listLimiter := middleware.NewListRateLimiter()
	detailLimiter := middleware.NewDetailRateLimiter()

	api.Get("/abuses", h.Abuse.List, listLimiter.Handler())
	api.Get("/abuses/:id", h.Abuse.Get, detailLimiter.Handler())
}
