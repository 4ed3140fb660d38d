// Command pipeline executes the analysis notebooks in order and records each
// run in the history database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/config"
	"github.com/spf13/cobra"
)

// errRunFailed signals a run that ended Failed. Its report is already on
// stdout, so main only sets the exit status.
var errRunFailed = errors.New("pipeline run failed")

type options struct {
	configPath  string
	dbPath      string
	workDir     string
	lockDir     string
	lockTimeout time.Duration
	noHistory   bool
	logLevel    slog.Level
}

func newRootCmd(env config.Config) *cobra.Command {
	opts := options{
		configPath:  env.PipelineConfig,
		dbPath:      env.DBPath,
		lockDir:     env.LockDir,
		lockTimeout: 5 * time.Second,
		logLevel:    env.LogLevel,
	}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Exécute les notebooks d'analyse dans l'ordre",
		Long: `Exécute les notebooks d'analyse e-commerce l'un après l'autre depuis la
racine du projet. Le pipeline s'arrête au premier notebook en échec.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts, nil, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), opts.logLevel))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", opts.dbPath, "Base de données de l'historique (DB_PATH)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", opts.configPath, "Liste JSON des notebooks (PIPELINE_CONFIG)")
	cmd.Flags().StringVar(&opts.workDir, "dir", "", "Racine du projet (défaut : répertoire courant)")
	cmd.Flags().DurationVar(&opts.lockTimeout, "lock-timeout", opts.lockTimeout, "Attente maximale du verrou")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Ne pas enregistrer l'exécution")

	cmd.AddCommand(newHistoryCmd(&opts))
	return cmd
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Erreur:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = newRootCmd(env).ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "❌ Erreur:", err)
		}
		os.Exit(1)
	}
}
