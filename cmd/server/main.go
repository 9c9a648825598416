package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tourbook/internal/config"
	"tourbook/internal/handler"
	"tourbook/internal/middleware"
	"tourbook/internal/model"
	"tourbook/internal/repository"
	"tourbook/internal/service"
	"tourbook/internal/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	// --- Database ---
	ctx := context.Background()
	client, err := config.ConnectMongo(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	db := client.Database(cfg.MongoDB)
	if err := config.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	// --- Utilities ---
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)

	mailer, err := service.NewSMTPMailer(service.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create mailer")
	}
	checkout := service.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	usersColl := repository.NewUserCollection(db)
	tripRepo := repository.NewTripRepository(db)
	reviewRepo := repository.NewReviewRepository(db, tripRepo)
	bookingsColl := repository.NewCollection[model.Booking](db, "bookings")

	// --- Services ---
	authService := service.NewAuthService(userRepo, hasher, tokens, mailer, cfg.BaseURL, logger)
	bookingService := service.NewBookingService(tripRepo, userRepo, bookingsColl, checkout, cfg.BaseURL)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService, tokens, cfg.IsProduction(), logger)
	userHandler := handler.NewUserHandler(usersColl, logger)
	tripHandler := handler.NewTripHandler(tripRepo, reviewRepo, logger)
	reviewHandler := handler.NewReviewHandler(reviewRepo, logger)
	bookingHandler := handler.NewBookingHandler(bookingService, bookingsColl, logger)

	// --- Router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSOrigins),
	)

	protect := middleware.Protect(tokens, userRepo, logger)
	maybeAuth := middleware.MaybeAuth(tokens, userRepo)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)
	staffOnly := middleware.RequireRoles(model.RoleAdmin, model.RoleLeadGuide)
	planningRoles := middleware.RequireRoles(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide)
	userOnly := middleware.RequireRoles(model.RoleUser)
	reviewEditors := middleware.RequireRoles(model.RoleUser, model.RoleAdmin)

	api := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(api, protect)
	userHandler.RegisterUserRoutes(api, protect, adminOnly)
	tripHandler.RegisterTripRoutes(api, maybeAuth, protect, staffOnly, planningRoles)
	reviewHandler.RegisterReviewRoutes(api, protect, userOnly, reviewEditors)
	bookingHandler.RegisterBookingRoutes(api, protect, staffOnly)

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exited")
}
