package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psantana5/exectime/internal/pipeline"
	"github.com/psantana5/exectime/internal/runner"
	"github.com/psantana5/exectime/pkg/logging"
)

var (
	runLabel string
	runJobID string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command and report how long it took",
	Long: `Runs the command in its own process group, reports one timing result
through the configured sinks and exits with the command's exit code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runLabel, "label", "l", "", "label to report (default: command name)")
	runCmd.Flags().StringVar(&runJobID, "job-id", "", "job id to attach to logs (default: random UUID)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Build(ctx, cfg, pipeline.Options{Logger: logger, Console: os.Stdout})
	if err != nil {
		return err
	}
	defer p.Close(context.Background())

	out, err := runner.Run(ctx, p.Timer, runner.Spec{
		Label:   runLabel,
		JobID:   runJobID,
		Command: args[0],
		Args:    args[1:],
	})
	if err != nil {
		return err
	}

	logger.Debug("Command finished", logging.Fields{
		"job_id":      out.JobID,
		"pid":         out.PID,
		"exit_code":   out.ExitCode,
		"duration_ms": out.Result.Milliseconds(),
	})

	if out.ExitCode != 0 {
		code := out.ExitCode
		if code < 0 {
			code = 1
		}
		return &ExitCodeError{Code: code}
	}
	return nil
}
