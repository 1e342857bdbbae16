package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type dependencyCheck struct {
	name  string
	probe func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []dependencyCheck
	startAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{startAt: time.Now()}

	h.checks = append(h.checks, dependencyCheck{
		name:  "database",
		probe: func(ctx context.Context) error { return pool.Ping(ctx) },
	})

	// Redis is optional: the blocklist cache degrades to direct queries.
	if rdb != nil {
		h.checks = append(h.checks, dependencyCheck{
			name:  "redis",
			probe: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	return h
}

// Live handles GET /health/live — liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready — readiness probe with dependency checks.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	results := make(fiber.Map, len(h.checks))
	healthy := true

	for _, check := range h.checks {
		start := time.Now()
		err := check.probe(ctx)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			healthy = false
			results[check.name] = fiber.Map{
				"status":     "down",
				"latency_ms": latency,
				"error":      "connection failed",
			}
			continue
		}
		results[check.name] = fiber.Map{
			"status":     "up",
			"latency_ms": latency,
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         results,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
	})
}
