package main

import (
	"context"
	"database/sql"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/broadcast"
	"github.com/livepoll/api/internal/adapters/handler/http"
	"github.com/livepoll/api/internal/adapters/repository/postgres"
	"github.com/livepoll/api/internal/core/services"
	"github.com/livepoll/api/internal/platform/config"
)

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
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollRepo := postgres.NewPollRepository(db)
	voteLedger := postgres.NewVoteRepository(db)
	notifRepo := postgres.NewNotificationRepository(db)
	resultRepo := postgres.NewPollResultRepository(db)

	clk := clock.New()
	hub := broadcast.NewHub(cfg.Engine.HubBuffer, logger)

	pollService := services.NewPollService(pollRepo, hub, clk, logger)
	voteService := services.NewVoteService(pollRepo, voteLedger, hub, clk, cfg.Engine.StoreTimeout, logger)
	notifService := services.NewNotificationService(voteLedger, notifRepo, clk, logger)
	lifecycle := services.NewLifecycleService(
		pollRepo, notifService, hub, clk,
		cfg.Engine.SweepInterval, cfg.Engine.StoreTimeout, logger,
	)
	summaryService := services.NewSummaryService(pollRepo, resultRepo, logger)

	go func() {
		if err := lifecycle.Run(ctx); err != nil {
			logger.Error("expiry scheduler exited", zap.Error(err))
		}
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Engine.SummaryCron, func() {
		if err := summaryService.SummarizeAllVotes(ctx); err != nil {
			logger.Error("vote summarization failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("invalid summary cron spec", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	auth := http.NewAuthMiddleware(cfg.Auth.JWTSecret)
	handler := http.NewHandler(
		http.NewPollHandler(pollService, lifecycle, resultRepo),
		http.NewVoteHandler(voteService),
		http.NewNotificationHandler(notifRepo),
		http.NewWSHandler(hub, logger),
		auth,
	)

	server := &stdhttp.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
