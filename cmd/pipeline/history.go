package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/db"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Affiche les dernières exécutions du pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			gormDB, err := db.Open(opts.dbPath, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(gormDB) }()

			store := history.NewStore(gormDB, logger)
			return printHistory(cmd, store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Nombre d'exécutions à afficher")
	return cmd
}

func printHistory(cmd *cobra.Command, store *history.Store, limit int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalRuns == 0 {
		fmt.Fprintln(out, "Aucune exécution enregistrée.")
		return nil
	}

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d exécutions, %.0f%% de réussite, durée moyenne %.0fs\n\n",
		stats.TotalRuns, stats.SuccessRate(), stats.AverageSeconds)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DÉBUT\tÉTAT\tDURÉE\tÉTAPES\tMESSAGE")
	for _, run := range runs {
		steps := make([]string, 0, len(run.Steps))
		for _, s := range run.Steps {
			mark := "✅"
			if !s.Succeeded {
				mark = "❌"
			}
			steps = append(steps, mark+" "+s.Name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.State,
			run.Duration().Round(time.Millisecond),
			strings.Join(steps, " "),
			oneLine(run.Message))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(stats.FailuresByStep) > 0 {
		fmt.Fprintln(out, "\nÉchecs par étape :")
		for _, f := range stats.FailuresByStep {
			fmt.Fprintf(out, "  %s : %d\n", f.Name, f.Count)
		}
	}
	return nil
}

func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
