package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/config"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
)

var upCmd = &cobra.Command{
	Use:   "up <name>",
	Short: "Drive an environment to ready",
	Long: `Resolves the environment's image, fetches and verifies its artifacts,
applies the declared provisioning steps and waits for the endpoint.

Re-running up is safe: cached artifacts are not downloaded again and
provisioning steps whose effect is already present are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	return upEnvironment(cmd.Context(), args[0])
}

// upEnvironment drives one environment to ready. Shared with the
// picker's up action.
func upEnvironment(ctx context.Context, name string) error {
	// Validate environment name early
	if err := config.ValidateEnvironmentName(name); err != nil {
		return errors.ValidationError(err.Error())
	}

	logging.Debug("starting environment run", "name", name)

	orch, store, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	logInfo("Starting environment %s...", name)

	status, err := orch.Up(ctx, name)
	if err != nil {
		if status != nil && status.FailedAt != "" {
			logError("Failed during %s", status.FailedAt)
		}
		return err
	}

	logSuccess("Environment %s is ready", name)
	fmt.Printf("  Image: %s\n", status.Image)
	fmt.Printf("  Endpoint: %s@%s:%d\n", status.User, status.Host, status.Port)
	fmt.Printf("  Connect: outpost-ctl ssh %s\n", name)

	return nil
}
