package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/config"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/lock"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/pipeline"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	fail    string
	invoked []string
}

func (r *scriptedRunner) Execute(ctx context.Context, job pipeline.Job) (pipeline.Outcome, error) {
	r.invoked = append(r.invoked, job.Name)
	if job.Name == r.fail {
		return pipeline.Outcome{ExitCode: 1, Diagnostics: "boom"}, nil
	}
	return pipeline.Outcome{}, nil
}

func testOptions(t *testing.T) options {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "notebooks"), 0o755))
	return options{
		dbPath:      filepath.Join(t.TempDir(), "pipeline.db"),
		workDir:     root,
		lockDir:     t.TempDir(),
		lockTimeout: 50 * time.Millisecond,
		logLevel:    slog.LevelError,
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runHistory(t *testing.T, opts options) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(config.Config{DBPath: opts.dbPath, LogLevel: slog.LevelError})
	cmd.SetArgs([]string{"history", "--db", opts.dbPath})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestRunPipelineRecordsHistory(t *testing.T) {
	opts := testOptions(t)
	require.Contains(t, runHistory(t, opts), "Aucune exécution enregistrée.")

	var out bytes.Buffer
	runner := &scriptedRunner{}
	require.NoError(t, runPipeline(context.Background(), opts, runner, &out, quiet()))
	require.Equal(t, []string{"exploration", "analysis", "ab_testing"}, runner.invoked)
	require.Contains(t, out.String(), "PIPELINE TERMINÉ AVEC SUCCÈS")

	failing := &scriptedRunner{fail: "analysis"}
	err := runPipeline(context.Background(), opts, failing, io.Discard, quiet())
	require.ErrorIs(t, err, errRunFailed)
	require.Equal(t, []string{"exploration", "analysis"}, failing.invoked)

	listing := runHistory(t, opts)
	require.Contains(t, listing, "2 exécutions, 50% de réussite")
	require.Contains(t, listing, "❌ analysis")
	require.Contains(t, listing, "analysis : 1")
}

func TestRunPipelineWithoutMarker(t *testing.T) {
	opts := testOptions(t)
	opts.workDir = t.TempDir()
	opts.noHistory = true

	runner := &scriptedRunner{}
	var out bytes.Buffer
	require.ErrorIs(t, runPipeline(context.Background(), opts, runner, &out, quiet()), errRunFailed)
	require.Empty(t, runner.invoked)
	require.Contains(t, out.String(), "Dossier 'notebooks' introuvable")
}

func TestRunPipelineRefusesConcurrentRun(t *testing.T) {
	opts := testOptions(t)
	held := lock.NewFileLock(opts.lockDir, time.Hour, quiet())
	require.NoError(t, held.Acquire(context.Background(), lockKey, 0))

	runner := &scriptedRunner{}
	err := runPipeline(context.Background(), opts, runner, io.Discard, quiet())
	require.ErrorIs(t, err, lock.ErrHeld)
	require.Empty(t, runner.invoked)
}

func TestRunPipelineCustomConfig(t *testing.T) {
	opts := testOptions(t)
	opts.noHistory = true
	opts.configPath = filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(opts.configPath, []byte(`{"jobs":[{"path":"notebooks/02_analysis.ipynb"}]}`), 0o600))

	runner := &scriptedRunner{}
	require.NoError(t, runPipeline(context.Background(), opts, runner, io.Discard, quiet()))
	require.Equal(t, []string{"02_analysis.ipynb"}, runner.invoked)
}

func TestRootCommandRejectsMissingConfig(t *testing.T) {
	cmd := newRootCmd(config.Config{LogLevel: slog.LevelError})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.json"), "--no-history"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "failed to read pipeline config")
}
