// Package pipeline runs the analysis notebooks in a fixed order and stops at
// the first one that fails.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/validation"
)

// DefaultMarker is the directory that must exist in the working directory
// before any job runs.
const DefaultMarker = "notebooks"

// Job is one notebook execution step.
type Job struct {
	Name string
	Path string
}

// Config is the ordered job list plus the working-directory marker.
type Config struct {
	Marker string
	Jobs   []Job
}

// DefaultConfig returns the three analysis notebooks in execution order.
func DefaultConfig() Config {
	return Config{
		Marker: DefaultMarker,
		Jobs: []Job{
			{Name: "exploration", Path: "notebooks/01_exploration.ipynb"},
			{Name: "analysis", Path: "notebooks/02_analysis.ipynb"},
			{Name: "ab_testing", Path: "notebooks/03_ab_testing.ipynb"},
		},
	}
}

// LoadConfig reads a JSON job list from path. An empty path yields
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	// #nosec G304 - path is an operator supplied config file
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	doc, err := validation.ValidateAndParsePipelineConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}

	cfg := Config{Marker: doc.Marker}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	for _, item := range doc.Jobs {
		name := item.Name
		if name == "" {
			name = filepath.Base(item.Path)
		}
		cfg.Jobs = append(cfg.Jobs, Job{Name: name, Path: item.Path})
	}
	return cfg, nil
}

// State is the position of a run in its lifecycle.
type State int

const (
	NotStarted State = iota
	Running
	Failed
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Failed || s == Done
}
