package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/handlers"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/config"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/db"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/health"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/history"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))
	logger := slog.Default()

	// The dashboard only needs the artifacts; without a database the run
	// history is hidden.
	var runs *history.Store
	gormDB, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Warn("Run history disabled", slog.String("path", cfg.DBPath), slog.Any("error", err))
		gormDB = nil
	} else {
		defer func() {
			if err := db.Close(gormDB); err != nil {
				logger.Error("Failed to close database", slog.Any("error", err))
			}
		}()
		runs = history.NewStore(gormDB, logger)
	}

	store := dataset.NewStore(cfg.DataDir, logger)
	store.Preload()

	artifacts := make([]string, 0, len(dataset.Artifacts))
	for _, a := range dataset.Artifacts {
		artifacts = append(artifacts, string(a))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(store, runs, health.Check(gormDB, cfg.DataDir, artifacts)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting dashboard",
			slog.String("port", cfg.Port),
			slog.String("data_dir", cfg.DataDir),
			slog.String("db_path", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}
}
