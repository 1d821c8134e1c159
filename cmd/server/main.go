package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"releaseguard/internal/accounts"
	"releaseguard/internal/api"
	"releaseguard/internal/api/handlers"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/logger"
	"releaseguard/internal/platform/audit"
	"releaseguard/internal/platform/auth"
	"releaseguard/internal/platform/config"
	"releaseguard/internal/platform/database"
	"releaseguard/internal/platform/email"
	"releaseguard/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	// Account Store
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, database.Up); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	store := repositories.NewStore(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	notifier, err := email.NewNotifier(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure email provider")
	}

	accountSvc := accounts.NewService(
		accounts.StoreRepositories(store),
		tokenSvc,
		notifier,
		accounts.Config{
			PasswordValidityMonths:  cfg.Credentials.PasswordValidityMonths,
			ResetTokenTTL:           cfg.Credentials.ResetTokenTTL,
			SessionTTL:              cfg.JWT.AccessTokenTTL,
			TemporaryPasswordLength: cfg.Credentials.TemporaryPasswordLength,
			BaseURL:                 cfg.App.BaseURL,
			Sender:                  email.Address{Name: cfg.Email.FromName, Email: cfg.Email.FromAddress},
		},
		accounts.WithAuditor(audit.NewLogger(store.AuditLogs)),
	)

	// Router
	deps := &api.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(accountSvc, cfg.App.ConcealAccountExistence),
		OrgHandler:       handlers.NewOrgHandler(accountSvc),
		UserHandler:      handlers.NewUserHandler(accountSvc),
		AuditHandler:     handlers.NewAuditHandler(store.AuditLogs),
		HealthHandler:    handlers.NewHealthHandler(db),
		MetricsHandler:   handlers.NewMetricsHandler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc, accountSvc),
		TenantMiddleware: middleware.NewTenantMiddleware(store.Organizations),
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimit),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.RequestLogging(log.Logger)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("dialect", string(db.Dialect)).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
