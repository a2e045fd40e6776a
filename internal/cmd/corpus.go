package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/internal/config"
	"github.com/elysia-ai/corrige/internal/observability"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Reference corpus operations",
}

var corpusCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the reference corpus and build a trial index",
	Long: `Load every corpus file, validate it against the passage schema,
and build an index the way serve does at startup. Fails on the first
invalid passage or duplicate id.

Example:
  corrige corpus check
  corrige corpus check --corpus-dir data/corpus`,
	RunE: runCorpusCheck,
}

var (
	corpusDir  string
	corpusGlob string
)

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusCheckCmd)

	corpusCheckCmd.Flags().StringVar(&corpusDir, "corpus-dir", "", "Override the configured corpus directory")
	corpusCheckCmd.Flags().StringVar(&corpusGlob, "corpus-glob", "", "Override the configured corpus glob")
}

func runCorpusCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	dir := cfg.Retrieval.CorpusDir
	if corpusDir != "" {
		dir = corpusDir
	}
	pattern := cfg.Retrieval.CorpusGlob
	if corpusGlob != "" {
		pattern = corpusGlob
	}

	start := time.Now()
	passages, err := retrieval.LoadCorpus(dir, pattern)
	if err != nil {
		observability.CLILogger.Error("Corpus load failed",
			zap.String("dir", dir),
			zap.String("glob", pattern),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Corpus load failed", err)
	}

	ix, err := retrieval.Build("check", passages)
	if err != nil {
		observability.CLILogger.Error("Index build failed", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Index build failed", err)
	}

	fmt.Printf("Corpus:    %s (%s)\n", dir, pattern)
	fmt.Printf("Passages:  %d\n", ix.Len())
	fmt.Printf("Elapsed:   %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Println()
	fmt.Println("Corpus validated successfully.")
	return nil
}
