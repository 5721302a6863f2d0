package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/cache"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the artifact cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached artifacts",
	Args:  cobra.NoArgs,
	RunE:  runCacheLs,
}

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove cache entries whose files are missing or corrupt",
	Args:  cobra.NoArgs,
	RunE:  runCacheGC,
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheGCCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*cache.Store, error) {
	store, err := cache.Open(paths().CacheDir)
	if err != nil {
		return nil, errors.ConfigError("failed to open artifact cache", err)
	}
	return store, nil
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIGEST\tSIZE\tSOURCE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			shortDigest(e.Digest), formatSize(e.SizeBytes), e.SourceURL, e.CreatedAt)
	}
	return w.Flush()
}

func runCacheGC(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.GC(context.Background())
	if err != nil {
		return err
	}

	if removed == 0 {
		logInfo("Cache is clean")
	} else {
		logSuccess("Removed %d corrupt or missing entries", removed)
	}
	return nil
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
