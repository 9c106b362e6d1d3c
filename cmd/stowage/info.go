package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/stowage/config"
	"github.com/sagarc03/stowage/contenttype"
	"github.com/sagarc03/stowage/stores"
)

var contentTypeFromName bool

var contentTypeCmd = &cobra.Command{
	Use:   "content-type <prefix>/<path>|<file name>",
	Short: "Print the content type of a file",
	Long: `Content-type prints the content type a store reports for a file.
With --from-name nothing is opened; the type is looked up from the file
name's extension.

Examples:
  stowage content-type images/2024/cat.jpg
  stowage content-type --from-name report.docx`,
	Args: cobra.ExactArgs(1),
	RunE: runContentType,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available storage backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(stores.DefaultRegistry().Backends(), "\n"))
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML, secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	contentTypeCmd.Flags().BoolVar(&contentTypeFromName, "from-name", false, "infer from the file name only")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(contentTypeCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(configCmd)
}

func runContentType(cmd *cobra.Command, args []string) error {
	var ct string
	if contentTypeFromName {
		ct = contenttype.ForFilename(args[0])
	} else {
		store, path, err := openTarget(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeStore(store)

		ct, err = store.ContentType(cmd.Context(), path)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), ct)
	return err
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
