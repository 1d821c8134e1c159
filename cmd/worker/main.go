package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"releaseguard/internal/pkg/logger"
	"releaseguard/internal/platform/config"
	"releaseguard/internal/platform/database"
	"releaseguard/internal/platform/repositories"
	"releaseguard/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	store := repositories.NewStore(db)
	housekeeper := workers.NewHousekeeper(store.Users, store.Sessions, cfg.Workers.HousekeepingInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if *once {
		res, err := housekeeper.RunOnce(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Housekeeping sweep failed")
		}
		log.Info().Int64("reset_tokens", res.ResetTokens).Int64("sessions", res.Sessions).Msg("Housekeeping sweep completed")
		return
	}

	log.Info().Dur("interval", cfg.Workers.HousekeepingInterval).Msg("Starting ReleaseGuard housekeeping worker")
	housekeeper.Run(ctx)
	log.Info().Msg("Worker stopped")
}
