package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/internal/config"
	"github.com/elysia-ai/corrige/internal/observability"
	"github.com/elysia-ai/corrige/pkg/jobstore"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect persisted correction jobs",
}

var jobsDeadLetterCmd = &cobra.Command{
	Use:   "dead-letter",
	Short: "List jobs that exhausted their retries",
	Long: `List dead-lettered jobs from the job store, with the attempt
count and last recorded error for each. Useful for deciding whether a
job should be resubmitted.

Example:
  corrige jobs dead-letter`,
	RunE: runJobsDeadLetter,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsDeadLetterCmd)
}

func runJobsDeadLetter(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	db, err := jobstore.Open(ctx, jobstore.Config{Path: cfg.Storage.DBPath})
	if err != nil {
		observability.CLILogger.Error("Failed to open job store",
			zap.String("path", cfg.Storage.DBPath),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to open job store", err)
	}
	defer func() { _ = db.Close() }()

	jobs, err := jobstore.New(db).ListDeadLettered(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to list dead-lettered jobs", zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to list dead-lettered jobs", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No dead-lettered jobs.")
		return nil
	}

	for _, j := range jobs {
		fmt.Printf("%s  attempts=%d  reason=%s\n", j.ID, j.Attempts, j.LastErrorReason)
		if j.LastError != "" {
			fmt.Printf("  last error: %s\n", j.LastError)
		}
	}
	fmt.Printf("\n%d dead-lettered job(s).\n", len(jobs))
	return nil
}
