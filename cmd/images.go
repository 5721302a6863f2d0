package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/resolver"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List images the index can resolve",
	Args:  cobra.NoArgs,
	RunE:  runImages,
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}

func runImages(cmd *cobra.Command, args []string) error {
	res, err := resolver.Load(paths().ImageIndexPath())
	if err != nil {
		return err
	}

	images := res.Images()
	if len(images) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Image index is empty")
		return nil
	}

	for _, id := range images {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
