package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SNZAMBA65/ecommerce-analysis/models"
	"gorm.io/gorm"
)

// RunMigrations creates the run history tables and their query indexes.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := enableSQLiteOptimizations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.PipelineRun{}, &models.PipelineStep{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := createAdditionalIndexes(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

// enableSQLiteOptimizations applies connection pragmas. A pragma the driver
// rejects is logged and skipped.
func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range optimizations {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		} else {
			logger.Debug("Executed pragma", slog.String("pragma", pragma))
		}
	}

	return nil
}

func createAdditionalIndexes(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at)",
		"CREATE INDEX IF NOT EXISTS idx_pipeline_runs_state ON pipeline_runs(state)",
		"CREATE INDEX IF NOT EXISTS idx_pipeline_steps_run_position ON pipeline_steps(pipeline_run_id, position)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		logger.Debug("Created index", slog.String("sql", indexSQL))
	}

	return nil
}
