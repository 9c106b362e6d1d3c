package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <prefix>/<path> [<prefix>/<path>...]",
	Short: "Delete files and directories",
	Long: `Rm deletes each path and everything under it. Deleting a path that
does not exist is not an error.

Examples:
  stowage rm images/2024/cat.jpg
  stowage rm images/2023 images/2022`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear <prefix>",
	Short: "Delete everything in a store",
	Long: `Clear deletes every file under <prefix>. It asks for confirmation
unless --yes is given.

Examples:
  stowage clear scratch --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(clearCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	for _, target := range args {
		store, path, err := openTarget(cmd.Context(), target)
		if err != nil {
			return err
		}

		err = store.Delete(cmd.Context(), path)
		closeStore(store)
		if err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
		slog.Info("removed", "target", target)
	}

	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	prefix, path, err := splitTarget(args[0])
	if err != nil {
		return err
	}
	if path != "" {
		return fmt.Errorf("clear takes a store prefix, not a path; use rm to delete %s", args[0])
	}

	if !clearYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete everything under '%s'", prefix),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			if errors.Is(promptErr, promptui.ErrInterrupt) || errors.Is(promptErr, promptui.ErrAbort) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return promptErr
		}
	}

	store, err := openStore(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clear %s: %w", prefix, err)
	}

	slog.Info("cleared", "prefix", prefix)
	return nil
}
