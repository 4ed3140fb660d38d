package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMarkerMissing = errors.New("working directory marker not found")
	ErrJobFailed     = errors.New("job failed")
)

var rule = strings.Repeat("=", 70)

// StepReport is the result of one job invocation.
type StepReport struct {
	Position  int
	Job       Job
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Err       error
}

// Succeeded reports whether the job started and exited with status 0.
func (s StepReport) Succeeded() bool {
	return s.Err == nil && s.Outcome.ExitCode == 0
}

func (s StepReport) failure() error {
	if s.Err != nil {
		return fmt.Errorf("%w: %s: %w", ErrJobFailed, s.Job.Path, s.Err)
	}
	return fmt.Errorf("%w: %s exited with status %d", ErrJobFailed, s.Job.Path, s.Outcome.ExitCode)
}

// Report summarizes a finished run.
type Report struct {
	RunID      string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepReport
	FailedStep int
	Err        error
}

// Invocations is the number of jobs that were started.
func (r Report) Invocations() int {
	return len(r.Steps)
}

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// Sequencer runs the configured jobs one after another.
type Sequencer struct {
	cfg      Config
	runner   Runner
	out      io.Writer
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	workDir  string
}

type Option func(*Sequencer)

// WithOutput sets where the console report is written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Sequencer) { s.out = w }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(s *Sequencer) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// WithWorkDir sets the directory the marker is resolved against.
func WithWorkDir(dir string) Option {
	return func(s *Sequencer) { s.workDir = dir }
}

func New(cfg Config, runner Runner, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:    cfg,
		runner: runner,
		out:    os.Stdout,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every job in order and returns once the run reaches a terminal
// state. Jobs are never retried and side effects of finished jobs are kept.
func (s *Sequencer) Run(ctx context.Context) Report {
	report := Report{
		RunID:     uuid.NewString(),
		State:     NotStarted,
		StartedAt: s.now(),
	}

	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, "🚀 PIPELINE D'AUTOMATISATION - ANALYSE E-COMMERCE")
	fmt.Fprintln(s.out, rule)

	if !s.markerPresent() {
		fmt.Fprintf(s.out, "❌ Erreur: Dossier '%s' introuvable\n", s.cfg.Marker)
		fmt.Fprintln(s.out, "   Exécutez ce script depuis la racine du projet")
		s.logger.Error("Pipeline precondition failed",
			slog.String("run_id", report.RunID),
			slog.String("marker", s.cfg.Marker))
		report.State = Failed
		report.Err = fmt.Errorf("%w: %s", ErrMarkerMissing, s.cfg.Marker)
		return s.finish(ctx, report)
	}

	report.State = Running
	s.logf("Début du pipeline d'analyse automatisé")
	s.logger.Info("Pipeline started",
		slog.String("run_id", report.RunID),
		slog.Int("jobs", len(s.cfg.Jobs)))

	total := len(s.cfg.Jobs)
	for i, job := range s.cfg.Jobs {
		position := i + 1
		fmt.Fprintf(s.out, "\n%s\nÉTAPE %d/%d: %s\n%s\n", rule, position, total, filepath.Base(job.Path), rule)

		step := s.runStep(ctx, position, job)
		report.Steps = append(report.Steps, step)
		if !step.Succeeded() {
			s.logf("❌ Pipeline interrompu suite à une erreur")
			report.State = Failed
			report.FailedStep = position
			report.Err = step.failure()
			return s.finish(ctx, report)
		}
	}

	report.State = Done
	s.printSummary()
	return s.finish(ctx, report)
}

func (s *Sequencer) runStep(ctx context.Context, position int, job Job) StepReport {
	s.logf("Exécution de %s...", job.Path)

	step := StepReport{Position: position, Job: job, StartedAt: s.now()}
	step.Outcome, step.Err = s.runner.Execute(ctx, job)
	step.Duration = s.now().Sub(step.StartedAt)

	if step.Succeeded() {
		s.logf("✅ %s terminé", job.Path)
		s.logger.Info("Job finished",
			slog.Int("step", position),
			slog.String("path", job.Path),
			slog.Duration("elapsed", step.Duration))
		return step
	}

	s.logf("❌ Erreur dans %s", job.Path)
	if step.Err != nil {
		fmt.Fprintln(s.out, step.Err)
	}
	if step.Outcome.Diagnostics != "" {
		fmt.Fprintln(s.out, step.Outcome.Diagnostics)
	}
	s.logger.Error("Job failed",
		slog.Int("step", position),
		slog.String("path", job.Path),
		slog.Int("exit_code", step.Outcome.ExitCode),
		slog.Any("error", step.Err))
	return step
}

func (s *Sequencer) printSummary() {
	fmt.Fprintf(s.out, "\n%s\n✅ PIPELINE TERMINÉ AVEC SUCCÈS\n%s\n\n", rule, rule)

	s.logf("Fichiers générés :")
	s.logf("  📊 Graphiques dans reports/figures/")
	s.logf("  📁 Données traitées dans data/processed/")
	s.logf("  🧪 Résultats A/B tests sauvegardés")

	fmt.Fprintln(s.out, "\n💡 Prochaines étapes :")
	fmt.Fprintln(s.out, "  1. Consultez les graphiques dans reports/figures/")
	fmt.Fprintln(s.out, "  2. Importez les CSV dans Tableau depuis data/processed/")
	fmt.Fprintln(s.out, "  3. Consultez le résumé dans data/processed/ab_tests_results.csv")
}

func (s *Sequencer) finish(ctx context.Context, report Report) Report {
	report.FinishedAt = s.now()
	if s.recorder != nil {
		// A cancelled run still gets recorded.
		if err := s.recorder.Record(context.WithoutCancel(ctx), report); err != nil {
			s.logger.Warn("Failed to record pipeline run",
				slog.String("run_id", report.RunID),
				slog.Any("error", err))
		}
	}
	return report
}

func (s *Sequencer) markerPresent() bool {
	info, err := os.Stat(filepath.Join(s.workDir, s.cfg.Marker))
	return err == nil && info.IsDir()
}

func (s *Sequencer) logf(format string, args ...any) {
	fmt.Fprintf(s.out, "[%s] %s\n", s.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}
