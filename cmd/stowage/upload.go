package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage"
)

var uploadContentType string

var uploadCmd = &cobra.Command{
	Use:   "upload <prefix>[/path] <local-file> [local-file...]",
	Short: "Upload local files",
	Long: `Upload copies each local file to <path>/<file name> in the store.
The local files are left in place.

Examples:
  stowage upload images/2024 ./cat.jpg ./dog.jpg
  stowage upload docs ./report --content-type application/pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

var uploadDirCmd = &cobra.Command{
	Use:   "upload-dir <prefix>[/path] <local-dir>",
	Short: "Replace a directory with the files of a local directory",
	Long: `Upload-dir deletes everything under <path>, then uploads the regular,
non-hidden files found directly in <local-dir>. Subdirectories are skipped.

Examples:
  stowage upload-dir site/assets ./dist/assets`,
	Args: cobra.ExactArgs(2),
	RunE: runUploadDir,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "content type (default: inferred from the file name)")
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadDirCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	var opts []stowage.UploadOption
	if uploadContentType != "" {
		opts = append(opts, stowage.WithContentType(uploadContentType))
	}

	for _, local := range args[1:] {
		if err := store.Upload(cmd.Context(), path, local, opts...); err != nil {
			return fmt.Errorf("upload %s: %w", local, err)
		}
		slog.Info("uploaded", "file", local, "path", path)
	}

	return nil
}

func runUploadDir(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.UploadDir(cmd.Context(), path, args[1]); err != nil {
		return fmt.Errorf("upload dir %s: %w", args[1], err)
	}

	slog.Info("uploaded dir", "dir", args[1], "path", path)
	return nil
}
