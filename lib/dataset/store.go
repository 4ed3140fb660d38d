package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Snapshot is the set of artifacts as loaded from disk. Values are shared
// between callers and must be treated as read-only.
type Snapshot struct {
	KPIs     *KPISummary
	Daily    []DailyKPI
	Hourly   []HourlyActivity
	Products []ProductStat
	ABTests  []ABTestResult
	Events   []Event
	LoadedAt time.Time
	Errors   map[Artifact]error
}

// Err returns the load error of a single artifact, if any.
func (s *Snapshot) Err(a Artifact) error {
	return s.Errors[a]
}

type entry struct {
	value any
	err   error
}

// Store loads artifacts from a directory and memoizes them by file path until
// Invalidate is called. There is no eviction.
type Store struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	cache    map[string]entry
	loadedAt time.Time
	now      func() time.Time
}

func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]entry),
		now:    time.Now,
	}
}

// Dir is the directory artifacts are read from.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of an artifact.
func (s *Store) Path(a Artifact) string {
	return filepath.Join(s.dir, string(a))
}

// Snapshot returns every artifact, loading the ones not cached yet. A failed
// artifact leaves its field empty and is reported in Errors; the failure is
// cached like a success.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) == 0 {
		s.loadedAt = s.now()
	}
	snap := &Snapshot{
		LoadedAt: s.loadedAt,
		Errors:   make(map[Artifact]error),
	}

	var err error
	if snap.KPIs, err = load(s, ArtifactKPIs, ParseKPISummary); err != nil {
		snap.Errors[ArtifactKPIs] = err
	}
	if snap.Daily, err = load(s, ArtifactDaily, ParseDailyKPIs); err != nil {
		snap.Errors[ArtifactDaily] = err
	}
	if snap.Hourly, err = load(s, ArtifactHourly, ParseHourly); err != nil {
		snap.Errors[ArtifactHourly] = err
	}
	if snap.Products, err = load(s, ArtifactProducts, ParseProducts); err != nil {
		snap.Errors[ArtifactProducts] = err
	}
	if snap.ABTests, err = load(s, ArtifactABTests, ParseABTests); err != nil {
		snap.Errors[ArtifactABTests] = err
	}
	if snap.Events, err = load(s, ArtifactEvents, ParseEvents); err != nil {
		snap.Errors[ArtifactEvents] = err
	}
	return snap
}

// Preload reads every artifact into the cache so requests are served from the
// files as they were at startup. It returns the artifacts that failed to load.
func (s *Store) Preload() map[Artifact]error {
	snap := s.Snapshot()
	s.logger.Info("Dataset loaded",
		slog.String("dir", s.dir),
		slog.Int("loaded", len(Artifacts)-len(snap.Errors)),
		slog.Int("failed", len(snap.Errors)))
	return snap.Errors
}

// Invalidate drops every cached artifact so the next Snapshot re-reads disk.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]entry)
	s.logger.Info("Dataset cache invalidated", slog.String("dir", s.dir))
}

// load must be called with s.mu held.
func load[T any](s *Store, a Artifact, parse func(io.Reader) (T, error)) (T, error) {
	path := s.Path(a)
	if cached, ok := s.cache[path]; ok {
		v, _ := cached.value.(T)
		return v, cached.err
	}

	v, err := readFile(path, parse)
	if err != nil {
		s.logger.Error("Failed to load artifact", slog.String("path", path), slog.Any("error", err))
	} else {
		s.logger.Debug("Loaded artifact", slog.String("path", path))
	}
	s.cache[path] = entry{value: v, err: err}
	return v, err
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	// #nosec G304 - path is built from the configured data directory and a fixed artifact name
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}
