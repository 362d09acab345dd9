package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/repository/postgres"
	"github.com/livepoll/api/internal/core/services"
	"github.com/livepoll/api/internal/platform/config"
)

// One-shot rebuild of the poll_results read model, for running out of band
// from the server's cron job.
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
	resultRepo := postgres.NewPollResultRepository(db)
	summaryService := services.NewSummaryService(pollRepo, resultRepo, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("starting vote summarization")
	if err := summaryService.SummarizeAllVotes(ctx); err != nil {
		logger.Fatal("vote summarization failed", zap.Error(err))
	}
	logger.Info("vote summarization completed")
}
