package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	exitCodes map[string]int
	startErr  map[string]error
	invoked   []string
}

func (f *fakeRunner) Execute(ctx context.Context, job Job) (Outcome, error) {
	f.invoked = append(f.invoked, job.Path)
	if err := f.startErr[job.Path]; err != nil {
		return Outcome{ExitCode: -1}, err
	}
	code := f.exitCodes[job.Path]
	out := Outcome{ExitCode: code}
	if code != 0 {
		out.Diagnostics = "Traceback: boom in " + job.Path
	}
	return out, nil
}

type fakeRecorder struct {
	reports []Report
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, report Report) error {
	f.reports = append(f.reports, report)
	return f.err
}

func threeJobs() Config {
	return Config{
		Marker: "notebooks",
		Jobs: []Job{
			{Name: "one", Path: "notebooks/one.ipynb"},
			{Name: "two", Path: "notebooks/two.ipynb"},
			{Name: "three", Path: "notebooks/three.ipynb"},
		},
	}
}

func projectDir(t *testing.T, withMarker bool) string {
	t.Helper()
	dir := t.TempDir()
	if withMarker {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "notebooks"), 0o755))
	}
	return dir
}

func newTestSequencer(t *testing.T, cfg Config, runner Runner, dir string, out io.Writer, opts ...Option) *Sequencer {
	t.Helper()
	fixed := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	base := []Option{
		WithOutput(out),
		WithWorkDir(dir),
		WithClock(func() time.Time { return fixed }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(cfg, runner, append(base, opts...)...)
}

func TestRunAllJobsSucceed(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	seq := newTestSequencer(t, threeJobs(), runner, projectDir(t, true), &out)

	report := seq.Run(context.Background())

	require.Equal(t, Done, report.State)
	require.NoError(t, report.Err)
	require.Equal(t, 3, report.Invocations())
	require.Equal(t, []string{"notebooks/one.ipynb", "notebooks/two.ipynb", "notebooks/three.ipynb"}, runner.invoked)
	require.Zero(t, report.FailedStep)

	console := out.String()
	require.Contains(t, console, "ÉTAPE 1/3: one.ipynb")
	require.Contains(t, console, "ÉTAPE 3/3: three.ipynb")
	require.Contains(t, console, "[09:30:00] ✅ notebooks/two.ipynb terminé")
	require.Contains(t, console, "PIPELINE TERMINÉ AVEC SUCCÈS")
	require.Contains(t, console, "data/processed/")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[string]int{"notebooks/two.ipynb": 1}}
	var out bytes.Buffer
	seq := newTestSequencer(t, threeJobs(), runner, projectDir(t, true), &out)

	report := seq.Run(context.Background())

	require.Equal(t, Failed, report.State)
	require.Equal(t, 2, report.Invocations())
	require.Equal(t, 2, report.FailedStep)
	require.Equal(t, []string{"notebooks/one.ipynb", "notebooks/two.ipynb"}, runner.invoked)
	require.ErrorIs(t, report.Err, ErrJobFailed)

	console := out.String()
	require.Contains(t, console, "❌ Erreur dans notebooks/two.ipynb")
	require.Contains(t, console, "Traceback: boom in notebooks/two.ipynb")
	require.Contains(t, console, "Pipeline interrompu")
	require.NotContains(t, console, "ÉTAPE 3/3")
	require.NotContains(t, console, "TERMINÉ AVEC SUCCÈS")
}

func TestRunFailureAtEveryPosition(t *testing.T) {
	cfg := threeJobs()
	for i, failing := range cfg.Jobs {
		runner := &fakeRunner{exitCodes: map[string]int{failing.Path: 2}}
		seq := newTestSequencer(t, cfg, runner, projectDir(t, true), io.Discard)

		report := seq.Run(context.Background())

		require.Equal(t, Failed, report.State)
		require.Len(t, runner.invoked, i+1)
		require.Equal(t, failing.Path, runner.invoked[len(runner.invoked)-1])
		require.Equal(t, i+1, report.FailedStep)
	}
}

func TestRunMissingMarker(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	seq := newTestSequencer(t, threeJobs(), runner, projectDir(t, false), &out)

	report := seq.Run(context.Background())

	require.Equal(t, Failed, report.State)
	require.ErrorIs(t, report.Err, ErrMarkerMissing)
	require.Zero(t, report.Invocations())
	require.Empty(t, runner.invoked)
	require.Contains(t, out.String(), "Dossier 'notebooks' introuvable")
}

func TestRunMarkerMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notebooks"), []byte("not a dir"), 0o644))
	runner := &fakeRunner{}
	seq := newTestSequencer(t, threeJobs(), runner, dir, io.Discard)

	report := seq.Run(context.Background())

	require.Equal(t, Failed, report.State)
	require.Empty(t, runner.invoked)
}

func TestRunStartErrorIsFailure(t *testing.T) {
	runner := &fakeRunner{startErr: map[string]error{"notebooks/one.ipynb": errors.New("executable not found")}}
	var out bytes.Buffer
	seq := newTestSequencer(t, threeJobs(), runner, projectDir(t, true), &out)

	report := seq.Run(context.Background())

	require.Equal(t, Failed, report.State)
	require.Equal(t, 1, report.Invocations())
	require.ErrorIs(t, report.Err, ErrJobFailed)
	require.Contains(t, out.String(), "executable not found")
}

func TestRunRecordsReport(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	runner := &fakeRunner{}
	seq := newTestSequencer(t, threeJobs(), runner, projectDir(t, true), io.Discard, WithRecorder(recorder))

	report := seq.Run(context.Background())

	require.Equal(t, Done, report.State, "recorder errors must not change the outcome")
	require.Len(t, recorder.reports, 1)
	require.Equal(t, report.RunID, recorder.reports[0].RunID)
	require.Len(t, recorder.reports[0].Steps, 3)
}

func TestRunEmptyJobList(t *testing.T) {
	runner := &fakeRunner{}
	seq := newTestSequencer(t, Config{Marker: "notebooks"}, runner, projectDir(t, true), io.Discard)

	report := seq.Run(context.Background())

	require.Equal(t, Done, report.State)
	require.Zero(t, report.Invocations())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "done", Done.String())
	require.Equal(t, "failed", Failed.String())
	require.True(t, Failed.Terminal())
	require.False(t, Running.Terminal())
	require.True(t, strings.HasPrefix(State(42).String(), "state("))
}
