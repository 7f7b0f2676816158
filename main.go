package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/api"
	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
	"trade-journal/internal/cache"
	"trade-journal/internal/database"
	"trade-journal/internal/email"
	"trade-journal/internal/events"
	"trade-journal/internal/ledger"
	"trade-journal/internal/logging"
	"trade-journal/internal/monitor"
	"trade-journal/internal/notifier"
	"trade-journal/internal/quote"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		log.Fatalf("Invalid report timezone %q: %v", cfg.ReportTimezone, err)
	}

	// Initialize database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	repo := database.NewRepository(db)

	// Event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Redis-backed settings cache; nil cache degrades every read to the DB
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("Redis disabled", "error", err)
			cacheService = nil
		} else {
			defer cacheService.Close()
		}
	}
	settingsCache := cache.NewSettingsCache(cacheService, repo)

	// Auth
	jwtManager := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
	passwordManager := auth.NewPasswordManager(auth.DefaultBcryptCost, cfg.AuthConfig.MinPasswordLength)
	authService := auth.NewService(repo, jwtManager, passwordManager)
	if err := auth.SeedAdmin(ctx, repo, passwordManager, cfg.AuthConfig.AdminUsername, cfg.AuthConfig.AdminPassword); err != nil {
		logger.Error("Failed to seed admin account", "error", err)
	}

	// Billing gate
	billingService := billing.NewService(repo, cfg.BillingConfig.Enabled)
	logger.Info("Billing gate initialized", "enabled", billingService.Enabled())

	// Ledger
	recomputer := ledger.NewRecomputer(repo, loc)
	ledgerService := ledger.NewService(repo, recomputer, billingService, loc)

	// Quote caches: A-share chain with fallback, forex chain
	httpTimeout := cfg.QuoteConfig.RequestTimeout
	stockCache := quote.NewCache([]quote.Provider{
		quote.NewSinaProvider(cfg.QuoteConfig.SinaBaseURL, httpTimeout),
		quote.NewTencentProvider(cfg.QuoteConfig.TencentBaseURL, httpTimeout),
	}, cfg.QuoteConfig.PriceTTL)
	forexCache := quote.NewCache([]quote.Provider{
		quote.NewForexProvider(cfg.QuoteConfig.ForexBaseURL, httpTimeout),
	}, cfg.QuoteConfig.PriceTTL)

	// Email
	emailService := email.NewService(settingsCache, cfg.SMTPConfig)

	// Monitor and alert dispatcher
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	dispatcher := notifier.New(repo, emailService, cfg.MonitorConfig.AlertWindow, zlog)
	go dispatcher.Run(runCtx)

	if cfg.MonitorConfig.Enabled {
		positionMonitor := monitor.New(repo, stockCache, forexCache, dispatcher, eventBus,
			cfg.MonitorConfig.TickInterval, zlog)
		go positionMonitor.Run(runCtx)
		logger.Info("Position monitor started", "interval", cfg.MonitorConfig.TickInterval)
	}

	// Web server
	server := api.NewServer(cfg.ServerConfig, repo, eventBus, jwtManager, authService,
		ledgerService, stockCache, forexCache, billingService, emailService, settingsCache)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()
	logger.Info("Trade journal started",
		"host", cfg.ServerConfig.Host, "port", cfg.ServerConfig.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}

	logger.Info("Shutdown complete")
}
