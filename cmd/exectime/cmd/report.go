package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/exectime/internal/report"
	"github.com/psantana5/exectime/internal/store"
)

var (
	reportLabel    string
	reportLimit    int
	reportSince    time.Duration
	reportFailures bool
	reportOutput   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored timing results",
	Long: `Reads the history store configured under sinks.store and prints per-label
aggregates, or the raw failures with --failures.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportLabel, "label", "l", "", "only this label")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 0, "read at most this many results (0 = all)")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only results completed within this window, e.g. 24h")
	reportCmd.Flags().BoolVar(&reportFailures, "failures", false, "list failed results instead of aggregates")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "table", "output format: table, json, yaml, prom")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.Sinks.Store.Config)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer st.Close()

	q := store.Query{Label: reportLabel, Limit: reportLimit, FailuresOnly: reportFailures}
	if reportSince > 0 {
		q.Since = time.Now().Add(-reportSince)
	}
	results, err := st.List(ctx, q)
	if err != nil {
		return err
	}

	if reportFailures {
		failed := report.NewSlowLog(len(results)+1, 0)
		for i := len(results) - 1; i >= 0; i-- {
			failed.Write(results[i])
		}
		samples := failed.Recent(0)
		switch reportOutput {
		case report.FormatJSON:
			return report.WriteJSON(os.Stdout, samples)
		case report.FormatYAML:
			return report.WriteYAML(os.Stdout, samples)
		default:
			return report.WriteSamplesTable(os.Stdout, samples)
		}
	}

	summaries := report.Aggregate(results)
	if len(summaries) == 0 && reportOutput == report.FormatTable {
		fmt.Println("No timing results found")
		return nil
	}
	return report.Write(os.Stdout, reportOutput, summaries)
}
