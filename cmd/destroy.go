package cmd

import (
	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/orchestrator"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <name>",
	Short: "Forget an environment's run state",
	Long: `Removes the environment's recorded run state and audit history.

The descriptor and any cached artifacts are left alone, so a later up
starts fresh but still reuses downloaded artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	return destroyEnvironment(args[0])
}

// destroyEnvironment forgets an environment's run state and audit
// history. Shared with the picker's destroy action. Destroy needs no
// resolver or fetcher, so none are wired.
func destroyEnvironment(name string) error {
	if err := orchestrator.New(paths(), nil, nil).Destroy(name); err != nil {
		return err
	}

	logSuccess("Destroyed environment %s", name)
	return nil
}
