package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage"
)

var catCmd = &cobra.Command{
	Use:   "cat <prefix>/<path>",
	Short: "Print a file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

var getCmd = &cobra.Command{
	Use:   "get <prefix>/<path> <local-file>",
	Short: "Download a file",
	Long: `Get writes the file at <path> to <local-file>, creating parent
directories as needed.

Examples:
  stowage get images/2024/cat.jpg ./cat.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

var putContentType string

var putCmd = &cobra.Command{
	Use:   "put <prefix>/<path> [local-file|-]",
	Short: "Write a file from a local file or stdin",
	Long: `Put writes content to exactly <path>. Without a local file, or with
"-", the content is read from stdin.

Examples:
  echo hello | stowage put notes/hello.txt
  stowage put backups/db.sql.gz ./dump.sql.gz --content-type application/gzip`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putContentType, "content-type", "", "content type of the written object")
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	data, err := store.Read(cmd.Context(), path)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runGet(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Copy(cmd.Context(), path, args[1]); err != nil {
		return err
	}

	slog.Info("downloaded", "path", path, "file", args[1])
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	var src io.Reader = cmd.InOrStdin()
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[1], err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	var opts []stowage.UploadOption
	if putContentType != "" {
		opts = append(opts, stowage.WithContentType(putContentType))
	}

	return store.WriteToFile(cmd.Context(), path, src, opts...)
}
