package models

import (
	"time"

	"gorm.io/gorm"
)

// PipelineRun is one execution of the notebook sequence.
type PipelineRun struct {
	gorm.Model
	RunID      string `gorm:"uniqueIndex"`
	StartedAt  time.Time
	FinishedAt time.Time
	State      string // "done", "failed"
	FailedStep int    // 1-indexed position of the failing job, 0 when none
	Message    string
	Steps      []PipelineStep
}

// Duration returns the wall time of the run.
func (r PipelineRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type PipelineStep struct {
	gorm.Model
	PipelineRunID uint
	Position      int
	Name          string
	Path          string
	ExitCode      int
	Succeeded     bool
	Diagnostics   string
	StartedAt     time.Time
	DurationMs    int64
}
