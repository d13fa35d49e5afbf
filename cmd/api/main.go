package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/travel-guide-ai/travelmate-notifications/internal/config"
	"github.com/travel-guide-ai/travelmate-notifications/internal/handler"
	"github.com/travel-guide-ai/travelmate-notifications/internal/middleware"
	"github.com/travel-guide-ai/travelmate-notifications/internal/queue"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service"
	"github.com/travel-guide-ai/travelmate-notifications/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	slogger := newLogger(cfg)
	slog.SetDefault(slogger)

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	fcmClient, err := config.NewFirebaseMessaging(cfg)
	if err != nil {
		slogger.Warn("Firebase messaging unavailable, push delivery disabled", slog.Any("error", err))
	}

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL for task queue: %v", err)
	}

	enqueuer := queue.NewEnqueuer(redisOpt)
	defer enqueuer.Close()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redis, fcmClient, enqueuer, cfg, slogger)
	handlers := handler.NewHandlers(services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(
		redisOpt,
		repos.Notification,
		services.Directory,
		services.Dispatcher,
		cfg.Retention,
		cfg.ReaperSchedule,
		cfg.WorkerConcurrency,
		slogger,
	)
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
	}()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, cfg)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("Failed to shut down server: %v", err)
		}
	}()

	slogger.Info("Server starting", slog.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupRoutes(app *fiber.App, h *handler.Handlers, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	protected := v1.Group("", middleware.AuthRequired(cfg.JWTSecret))

	notifications := protected.Group("/notifications")
	notifications.Post("/", h.Notification.Create)
	notifications.Get("/", h.Notification.List)
	notifications.Get("/stats", h.Notification.GetStats)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Patch("/:id/archive", h.Notification.Archive)
	notifications.Delete("/:id", h.Notification.Delete)
}
