package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/repository/postgres"
	"github.com/livepoll/api/internal/core/ports"
	"github.com/livepoll/api/internal/core/services"
	"github.com/livepoll/api/internal/platform/config"
)

// One-shot expiry sweep, for cron-style deployments that do not keep the
// server's in-process scheduler running. Safe to run alongside it: the
// conditional close makes overlapping sweeps harmless.
func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	pollRepo := postgres.NewPollRepository(db)
	voteLedger := postgres.NewVoteRepository(db)
	notifRepo := postgres.NewNotificationRepository(db)

	clk := clock.New()
	notifService := services.NewNotificationService(voteLedger, notifRepo, clk, logger)
	lifecycle := services.NewLifecycleService(
		pollRepo, notifService, ports.NopBroadcaster{}, clk,
		cfg.Engine.SweepInterval, cfg.Engine.StoreTimeout, logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lifecycle.Sweep(ctx, clk.Now())
	logger.Info("sweep completed")
}
