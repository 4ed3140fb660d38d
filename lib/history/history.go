// Package history persists pipeline runs so the dashboard and the CLI can
// show when the artifacts were last regenerated.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/pipeline"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/types"
	"github.com/SNZAMBA65/ecommerce-analysis/models"
	"gorm.io/gorm"
)

// ErrNoRuns is returned by Latest when nothing has been recorded yet.
var ErrNoRuns = errors.New("no pipeline run recorded")

// maxDiagnostics bounds the stderr kept per step.
const maxDiagnostics = 8 << 10

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Record implements pipeline.Recorder.
func (s *Store) Record(ctx context.Context, report pipeline.Report) error {
	run := models.PipelineRun{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: report.FinishedAt.UTC(),
		State:      report.State.String(),
		FailedStep: report.FailedStep,
	}
	if report.Err != nil {
		run.Message = report.Err.Error()
	}
	for _, step := range report.Steps {
		run.Steps = append(run.Steps, models.PipelineStep{
			Position:    step.Position,
			Name:        step.Job.Name,
			Path:        step.Job.Path,
			ExitCode:    step.Outcome.ExitCode,
			Succeeded:   step.Succeeded(),
			Diagnostics: truncate(step.Outcome.Diagnostics, maxDiagnostics),
			StartedAt:   step.StartedAt.UTC(),
			DurationMs:  step.Duration.Milliseconds(),
		})
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	s.logger.Info("Recorded pipeline run",
		slog.String("run_id", run.RunID),
		slog.String("state", run.State),
		slog.Int("steps", len(run.Steps)))
	return nil
}

func withSteps(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Recent returns up to limit runs, newest first, with their steps.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	if err := s.db.WithContext(ctx).
		Preload("Steps", withSteps).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run, or ErrNoRuns.
func (s *Store) Latest(ctx context.Context) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := s.db.WithContext(ctx).
		Preload("Steps", withSteps).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest pipeline run: %w", err)
	}
	return &run, nil
}

// Stats aggregates every recorded run.
func (s *Store) Stats(ctx context.Context) (types.RunStats, error) {
	var stats types.RunStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.PipelineRun{}).Count(&stats.TotalRuns).Error; err != nil {
		return stats, fmt.Errorf("failed to count runs: %w", err)
	}
	if stats.TotalRuns == 0 {
		return stats, nil
	}
	if err := db.Model(&models.PipelineRun{}).Where("state = ?", pipeline.Done.String()).Count(&stats.SucceededRuns).Error; err != nil {
		return stats, fmt.Errorf("failed to count successful runs: %w", err)
	}
	if err := db.Model(&models.PipelineRun{}).Where("state = ?", pipeline.Failed.String()).Count(&stats.FailedRuns).Error; err != nil {
		return stats, fmt.Errorf("failed to count failed runs: %w", err)
	}

	var runs []models.PipelineRun
	if err := db.Select("started_at", "finished_at", "state").Order("started_at ASC").Find(&runs).Error; err != nil {
		return stats, fmt.Errorf("failed to load run timings: %w", err)
	}
	var total float64
	for _, run := range runs {
		total += run.Duration().Seconds()
		if run.State == pipeline.Done.String() {
			stats.LastSuccess = run.StartedAt
		}
	}
	stats.FirstRun = runs[0].StartedAt
	stats.LastRun = runs[len(runs)-1].StartedAt
	stats.AverageSeconds = total / float64(len(runs))

	if err := db.Table("pipeline_runs AS r").
		Select("s.name AS name, COUNT(*) AS count").
		Joins("JOIN pipeline_steps AS s ON s.pipeline_run_id = r.id AND s.position = r.failed_step").
		Where("r.state = ? AND r.deleted_at IS NULL AND s.deleted_at IS NULL", pipeline.Failed.String()).
		Group("s.name").
		Order("count DESC, s.name ASC").
		Scan(&stats.FailuresByStep).Error; err != nil {
		return stats, fmt.Errorf("failed to get failures by step: %w", err)
	}

	return stats, nil
}

// truncate keeps the last n bytes of s, the end of stderr being the part
// that names the failure.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
