// Package cmd implements the corrige command tree.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elysia-ai/corrige/internal/observability"
)

// versionInfo holds build-time identity, set by main via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records the build identity for the version command and
// the /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootLogLevel string

var rootCmd = &cobra.Command{
	Use:   "corrige",
	Short: "Asynchronous essay correction service",
	Long: `corrige accepts essay submissions, runs them through a set of
concurrent analyzers against a reference corpus, and serves consolidated
correction reports.

Configuration comes from corrige.yaml in the working directory and
CORRIGE_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootLogLevel != "" {
			return observability.Init(rootLogLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
