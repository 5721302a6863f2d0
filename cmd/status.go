package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/output"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show the recorded state of an environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := output.ValidateFormat(statusFormat); err != nil {
		return err
	}

	status, err := loadEnvironment(name)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.Options{Format: output.Format(statusFormat)})
	if err != nil {
		return err
	}

	text, err := formatter.FormatEnvironment(status)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), text)

	// Table mode also answers the question status exists for: can I
	// actually connect? Structured formats stay a pure record dump.
	if output.Format(statusFormat) == output.FormatTable && status.State == "ready" {
		fmt.Fprintf(cmd.OutOrStdout(), "Reachable: %s\n", reachability(cmd.Context(), status))
	}
	return nil
}
