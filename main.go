package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"refurbd/internal/config"
	"refurbd/internal/handlers"
	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/internal/services"
	"refurbd/internal/workers"
	"refurbd/pkg/mailer"
	"refurbd/pkg/payments"
	"refurbd/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Logging ---
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// --- Database ---
	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the order repository relies on for
	// idempotent webhook replay.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Seller{},
		&models.Product{},
		&models.Address{},
		&models.PromoCode{},
		&models.Order{},
		&models.OrderItem{},
		&models.EmailOutbox{},
	); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// --- RabbitMQ ---
	// The broker is best-effort: order finalization works without it, so
	// a failed connection degrades to a warning and a nil publisher.
	var publisher services.OrderEventPublisher
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, order events will not be published", zap.Error(err))
	} else {
		defer mqClient.Close()
		publisher = mqClient
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	promoRepo := repositories.NewGORMPromoCodeRepository(db)
	addressRepo := repositories.NewGORMAddressRepository(db)
	outboxRepo := repositories.NewGORMOutboxRepository(db)

	// --- Payments ---
	verifier := payments.NewVerifier(cfg.PaymentWebhookSecret)
	if verifier.DevMode() {
		logger.Warn("PAYMENT_WEBHOOK_SECRET is empty: webhook signature verification is DISABLED, do not run this in production")
	}
	gateway := payments.NewHTTPGateway(cfg.PaymentAPIBaseURL, cfg.PaymentAPIKey)

	// --- Services ---
	pricer := services.NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, logger)
	productService := services.NewProductService(productRepo)
	addressService := services.NewAddressService(addressRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, promoRepo, pricer, publisher, logger, cfg)
	checkoutService := services.NewCheckoutService(productRepo, promoRepo, gateway, pricer, logger, cfg)

	// --- Email outbox worker ---
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY is empty: confirmation emails will fail to send and exhaust their outbox attempts")
	}
	sender := mailer.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	emailWorker := workers.NewEmailWorker(outboxRepo, sender, logger, cfg.OutboxPollInterval, cfg.OutboxMaxAttempts)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go emailWorker.Run(workerCtx)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, logger)
	productHandler := handlers.NewProductHandler(productService, authService, logger)
	orderHandler := handlers.NewOrderHandler(orderService, authService, logger)
	addressHandler := handlers.NewAddressHandler(addressService, authService, logger)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, orderService, authService, logger)
	webhookHandler := handlers.NewWebhookHandler(verifier, orderService, logger)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(fiberlogger.New())

	// The webhook sits outside the API group: the provider calls it
	// directly and authenticates with the signature header, not a JWT.
	webhookHandler.RegisterRoutes(app)

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	orderHandler.RegisterRoutes(apiV1)
	addressHandler.RegisterRoutes(apiV1)
	checkoutHandler.RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	logger.Info("starting server", zap.String("port", cfg.AppPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	stopWorker()
	if err := app.Shutdown(); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
