package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage"
)

var lsLimit int

var lsCmd = &cobra.Command{
	Use:   "ls <prefix>[/path]",
	Short: "List files",
	Long: `Ls lists the files at or under a path, recursively.

Examples:
  stowage ls images
  stowage ls images/2024 --limit 10
  stowage ls images --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var existsCmd = &cobra.Command{
	Use:   "exists <prefix>/<path>",
	Short: "Report whether a file or directory exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runExists,
}

func init() {
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "l", 0, "stop after this many files (0: no limit)")
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(existsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	items := []stowage.ObjectInfo{}
	for obj, err := range store.Objects(cmd.Context(), path) {
		if err != nil {
			return err
		}
		items = append(items, obj)
		if lsLimit > 0 && len(items) == lsLimit {
			break
		}
	}

	if jsonOutput {
		return encodeJSON(cmd.OutOrStdout(), items)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, obj := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", obj.Key, formatSize(obj.Size), obj.LastModified.Format(time.DateTime), obj.ContentType)
	}
	return tw.Flush()
}

func runExists(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	ok, err := store.Exists(cmd.Context(), path)
	if err != nil {
		return err
	}

	if jsonOutput {
		return encodeJSON(cmd.OutOrStdout(), map[string]bool{"exists": ok})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
	return err
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
