package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"

	"github.com/flagwatch/flagwatch-go/internal/config"
	"github.com/flagwatch/flagwatch-go/internal/db"
	"github.com/flagwatch/flagwatch-go/internal/handler"
	"github.com/flagwatch/flagwatch-go/internal/middleware"
	"github.com/flagwatch/flagwatch-go/internal/repository"
	"github.com/flagwatch/flagwatch-go/internal/router"
	"github.com/flagwatch/flagwatch-go/internal/service"
)

func main() {
	cfg := config.Load()

	middleware.InitLogger(cfg.LogLevel, "flagwatch-api")

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			log.Printf("sentry init failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	handler.InitMetrics(pool)
	cache.SetCounters(handler.Metrics.CacheHits, handler.Metrics.CacheMisses)

	abuseRepo := repository.NewAbuseRepo(pool)
	blocklistRepo := repository.NewBlocklistRepo(pool)
	abuseSvc := service.NewAbuseService(abuseRepo, blocklistRepo, cache)

	h := &router.Handlers{
		Abuse:  handler.NewAbuseHandler(abuseSvc, cfg.ServerAccountID),
		Health: handler.NewHealthHandler(pool, cache.Client()),
	}

	app := fiber.New(fiber.Config{
		AppName:      "FlagWatch API",
		ServerHeader: "FlagWatch",
	})

	router.Setup(app, h, cfg.CORSOrigins)

	log.Printf("FlagWatch backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	log.Fatal(app.Listen(":" + cfg.Port))
}
