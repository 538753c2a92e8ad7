package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"storefront-backend/config"
	"storefront-backend/controllers"
	"storefront-backend/database"
	"storefront-backend/entitlements"
	"storefront-backend/logger"
	"storefront-backend/mailer"
	"storefront-backend/metrics"
	"storefront-backend/middlewares"
	"storefront-backend/paypal"
	"storefront-backend/routes"
	"storefront-backend/storage"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.App.Env)
	metrics.Register()

	// ---- Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("could not migrate database")
	}
	if created, err := database.SeedAdmin(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("could not seed admin user")
	} else if created {
		log.Info().Str("email", cfg.Auth.AdminEmail).Msg("bootstrap admin created")
	}

	// ---- Collaborators
	blobs, err := storage.NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("could not configure storage")
	}

	templates, err := mailer.LoadTemplates()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load email templates")
	}
	dispatcher := mailer.NewDispatcher(mailer.NewSMTPSender(cfg.Mail), templates, mailer.DispatcherConfig{
		From:        cfg.Mail.From,
		Attempts:    cfg.Mail.RetryAttempts,
		Delay:       cfg.Mail.RetryDelay,
		SendTimeout: cfg.Mail.SendTimeout,
	}, log.With().Str("component", "mailer").Logger())

	tokens := paypal.NewTokenCache(
		paypal.NewGormCredentialStore(db),
		paypal.NewOAuthExchanger(cfg.PayPal.APIBase, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.Timeout),
		log.With().Str("component", "paypal").Logger(),
	)
	verifier := paypal.NewVerifier(cfg.PayPal.APIBase, cfg.PayPal.WebhookID, cfg.PayPal.Timeout, log.With().Str("component", "paypal").Logger())

	ledger := entitlements.NewLedger(db, cfg.Downloads.GrantSize, log.With().Str("component", "ledger").Logger())
	gate := entitlements.NewGate(db, blobs, cfg.Storage.Bucket, log.With().Str("component", "gate").Logger())

	jwt, err := middlewares.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth config")
	}

	subjectPrefix := ""
	if cfg.App.Env != config.EnvProd {
		subjectPrefix = "[TEST] "
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.App.BodyLimitBytes(),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(middlewares.RateLimit(cfg.App.RateLimitMax, cfg.App.RateLimitWindow))

	// ---- Routes
	routes.Register(app, db, jwt, routes.Handlers{
		Webhooks: controllers.NewWebhookController(tokens, verifier, ledger, dispatcher, controllers.WebhookOptions{
			PublicURL:     cfg.App.PublicURL,
			SubjectPrefix: subjectPrefix,
		}, log.With().Str("component", "webhooks").Logger()),
		Downloads:      controllers.NewDownloadController(gate, log.With().Str("component", "downloads").Logger()),
		Auth:           controllers.NewAuthController(db, jwt),
		SignupRequests: controllers.NewSignupRequestController(db, dispatcher, cfg.Mail.AdminTo, subjectPrefix, log),
		Users:          controllers.NewUserController(db),
		Products:       controllers.NewProductController(db, blobs, cfg.Storage.Bucket, cfg.Storage.PresignTTL),
		Entitlements:   controllers.NewEntitlementController(gate),
	}, log)

	// ---- Start
	go func() {
		log.Info().Str("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("API server starting")
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(cfg.App.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	dispatcher.Wait()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
