package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/teacherin/cache"
	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/database"
	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/jobs"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/anjiri1684/teacherin/metrics"
	"github.com/anjiri1684/teacherin/notifications"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/anjiri1684/teacherin/routes"
	"github.com/anjiri1684/teacherin/services"
	"github.com/anjiri1684/teacherin/storage"
	"github.com/anjiri1684/teacherin/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "teacherin: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	metrics.Register()

	db, err := database.ConnectDB(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedAdmin(db, cfg.Admin, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker := newLocker(cfg.Redis, log)
	publisher := newPublisher(cfg.NATS, log)
	if np, ok := publisher.(*events.NatsPublisher); ok {
		defer np.Close()
	}
	presigner := newPresigner(ctx, cfg.Storage, log)

	avatars, err := storage.NewAvatarSigner(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			return err
		}
		log.Warn().Msg("cloudinary not configured, avatar uploads disabled")
		avatars = nil
	}

	var mailer services.Mailer
	if m := notifications.NewBrevoMailer(cfg.Email, log); m != nil {
		mailer = m
	} else {
		log.Warn().Msg("brevo not configured, emails disabled")
	}

	hub := websocket.NewHub(log)
	notifier := services.NewNotificationService(db, hub, mailer, log)
	gateway := payments.NewMidtransClient(cfg.Midtrans)
	settings := services.NewSettingsService(db, cfg.Platform)

	h := &handlers.Handler{
		Auth:          services.NewAuthService(db, cfg.JWT, log),
		Availability:  services.NewAvailabilityService(db, log),
		Bookings:      services.NewBookingService(db, publisher, notifier, log),
		Sessions:      services.NewSessionService(db, publisher, notifier, log),
		Payments:      services.NewPaymentService(db, gateway, locker, publisher, notifier, log),
		Reviews:       services.NewReviewService(db, publisher, notifier, log),
		Teachers:      services.NewTeacherService(db, log),
		Materials:     services.NewMaterialService(db, presigner, log),
		Orders:        services.NewOrderService(db, presigner, log),
		Payouts:       services.NewPayoutService(db, settings, log),
		Settings:      settings,
		Admin:         services.NewAdminService(db, log),
		Dashboards:    services.NewDashboardService(db),
		Notifications: notifier,
		Avatars:       avatars,
		Hub:           hub,
		Log:           log,
	}

	scheduler := cron.New()
	runner := &jobs.Runner{
		Bookings: h.Bookings,
		Sessions: h.Sessions,
		Payments: h.Payments,
		Notifier: notifier,
		Config:   cfg.Jobs,
		Log:      log,
	}
	if err := runner.Schedule(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("reminders", cfg.Jobs.ReminderSpec).Str("payment_sync", cfg.Jobs.PaymentSyncSpec).Msg("jobs scheduled")

	app := fiber.New(fiber.Config{
		AppName:       cfg.App.Name,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler(log),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.Setup(app, h, routes.Options{JWTSecret: cfg.JWT.Secret, RateLimit: cfg.RateLimit})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	return app.Listen(addr)
}

func newLocker(cfg config.RedisConfig, log *zerolog.Logger) cache.Locker {
	if cfg.Address == "" {
		log.Warn().Msg("redis not configured, payment locks are process local")
		return cache.NopLocker{}
	}
	client, err := cache.NewRedisClient(cfg.Address, cfg.Password, cfg.DB)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, payment locks are process local")
		return cache.NopLocker{}
	}
	return cache.NewRedisLock(client)
}

func newPublisher(cfg config.NATSConfig, log *zerolog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewNatsPublisher(cfg.URL, log)
	if err != nil {
		log.Warn().Err(err).Msg("nats unavailable, events disabled")
		return events.NopPublisher{}
	}
	return p
}

func newPresigner(ctx context.Context, cfg config.StorageConfig, log *zerolog.Logger) storage.Presigner {
	p, err := storage.NewFilePresigner(ctx, cfg)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			log.Warn().Err(err).Msg("object storage unavailable")
		}
		return storage.Unconfigured{}
	}
	return p
}
