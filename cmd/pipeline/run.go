package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/db"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/history"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/lock"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/pipeline"
)

const (
	lockKey = "pipeline"
	// A running pipeline touches its lock file every lockRefresh; one left
	// untouched for staleLock belongs to a killed process.
	staleLock   = 10 * time.Minute
	lockRefresh = time.Minute
)

// runPipeline loads the job list, takes the run lock and drives the sequencer.
// A nil runner executes notebooks with jupyter.
func runPipeline(ctx context.Context, opts options, runner pipeline.Runner, out io.Writer, logger *slog.Logger) error {
	cfg, err := pipeline.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	workDir := opts.workDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	fl := lock.NewFileLock(opts.lockDir, staleLock, logger)
	if err := fl.Acquire(ctx, lockKey, opts.lockTimeout); err != nil {
		return fmt.Errorf("un autre pipeline est en cours d'exécution: %w", err)
	}
	defer func() {
		if err := fl.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.Warn("Failed to release lock", slog.Any("error", err))
		}
	}()
	stopRefresh, err := fl.KeepAlive(ctx, lockKey, lockRefresh)
	if err != nil {
		return err
	}
	defer stopRefresh()

	seqOpts := []pipeline.Option{
		pipeline.WithOutput(out),
		pipeline.WithLogger(logger),
		pipeline.WithWorkDir(workDir),
	}
	if !opts.noHistory {
		gormDB, err := db.Open(opts.dbPath, logger)
		if err != nil {
			// The history is informational; the notebooks still run.
			logger.Warn("Run history disabled", slog.String("path", opts.dbPath), slog.Any("error", err))
		} else {
			defer func() { _ = db.Close(gormDB) }()
			seqOpts = append(seqOpts, pipeline.WithRecorder(history.NewStore(gormDB, logger)))
		}
	}

	if runner == nil {
		runner = pipeline.NewNotebookRunner(workDir, logger)
	}

	report := pipeline.New(cfg, runner, seqOpts...).Run(ctx)
	if report.State != pipeline.Done {
		logger.Debug("Pipeline ended", slog.String("state", report.State.String()), slog.Any("error", report.Err))
		return errRunFailed
	}
	return nil
}
