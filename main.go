package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mlm-referral-app/config"
	"mlm-referral-app/internal/api"
	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/cache"
	"mlm-referral-app/internal/catalog"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"
	"mlm-referral-app/internal/referral"
	"mlm-referral-app/internal/wallet"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Failed to load configuration", "error", err.Error())
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		Component:  "app",
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logging.SetDefault(logger)

	logger.Info("Starting MLM referral application",
		"port", cfg.ServerConfig.Port,
		"production", cfg.ServerConfig.ProductionMode)

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err.Error())
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal("Failed to run migrations", "error", err.Error())
	}

	repo := database.NewRepository(db)

	// Redis cache is optional; the services degrade to the database when
	// it is absent.
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without cache")
			cacheService = nil
		}
	}

	// Services
	passwordManager := auth.NewPasswordManager(auth.DefaultBcryptCost, cfg.AuthConfig.MinPasswordLength)
	jwtManager := auth.NewJWTManager(
		cfg.AuthConfig.JWTSecret,
		cfg.AuthConfig.AccessTokenDuration,
		cfg.AuthConfig.RefreshTokenDuration,
	)
	authService := auth.NewService(repo, jwtManager, passwordManager)

	referralConfig := referral.DefaultConfig()
	referralConfig.CodePrefix = cfg.ReferralConfig.CodePrefix
	if amount, err := decimal.NewFromString(cfg.ReferralConfig.DefaultDirectAmount); err == nil {
		referralConfig.DefaultDirectAmount = amount
	}
	if pct, err := decimal.NewFromString(cfg.ReferralConfig.DefaultMatchingPct); err == nil {
		referralConfig.DefaultMatchingPct = pct
	}

	var settingsCache referral.SettingsCache
	var contentCache catalog.ContentCache
	if cacheService != nil {
		settingsCache = cacheService
		contentCache = cacheService
	}

	referralService := referral.NewService(repo, passwordManager, settingsCache, referralConfig)

	chargeRate := wallet.DefaultChargeRate
	if rate, err := decimal.NewFromString(cfg.ReferralConfig.WithdrawalChargeRate); err == nil && rate.IsPositive() {
		chargeRate = rate
	}
	walletService := wallet.NewService(repo, chargeRate)

	catalogService := catalog.NewService(repo, contentCache)

	// HTTP server
	server := api.NewServer(
		api.ServerConfig{
			Port:           cfg.ServerConfig.Port,
			Host:           cfg.ServerConfig.Host,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			AllowedOrigins: splitOrigins(cfg.ServerConfig.AllowedOrigins),
		},
		repo,
		authService,
		jwtManager,
		referralService,
		walletService,
		catalogService,
	)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", "error", err.Error())
		}
	}()

	// Periodically purge expired refresh sessions
	sessionJanitor := time.NewTicker(time.Hour)
	defer sessionJanitor.Stop()
	go func() {
		for range sessionJanitor.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := repo.DeleteExpiredSessions(ctx); err != nil {
				logger.WithError(err).Warn("Failed to purge expired sessions")
			}
			cancel()
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	if cacheService != nil {
		cacheService.Close()
	}

	logger.Info("Shutdown complete")
}

// splitOrigins parses the comma-separated CORS origins setting
func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
