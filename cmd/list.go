package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/output"
)

var (
	listFormat    string
	listNoHeaders bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List known environments",
	Long: `Lists every declared environment with its recorded state.

Environments never driven by up show as not-started. Run state whose
descriptor was removed is still listed so it can be destroyed.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "Output format (table, json, yaml)")
	listCmd.Flags().BoolVar(&listNoHeaders, "no-headers", false, "Omit headers in table output")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := output.ValidateFormat(listFormat); err != nil {
		return err
	}

	environments, err := loadEnvironments()
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.Options{
		Format:    output.Format(listFormat),
		NoHeaders: listNoHeaders,
	})
	if err != nil {
		return err
	}

	text, err := formatter.FormatEnvironmentList(environments)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}
