package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "outpost-ctl",
	Short: "Outpost environment provisioning CLI",
	Long: `outpost-ctl drives declared environments from a descriptor to a
ready, connectable state.

Each environment is declared in a TOML descriptor naming:
  - A base image, resolved to downloadable artifacts
  - Connection parameters for the running environment
  - Ordered, re-runnable provisioning steps

Artifacts are verified against declared checksums and cached by content,
so repeated runs only download what is missing.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

// Execute runs the root command under a signal-aware context. An
// operator interrupt cancels in-flight work through the context, so a
// run stopped mid-download still records its failure before exiting.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
