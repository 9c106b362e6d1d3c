package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage/config"
)

var version = "dev"

var (
	cfgFiles   []string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "stowage",
	Short:   "Store files on the local filesystem or in S3 compatible buckets",
	Long: `stowage uploads, reads, lists and deletes files through one interface,
whether they live under a local directory or in an S3 compatible object store.

Targets are written as <prefix>/<path>. The first segment selects the store,
the rest is the path inside it:

  stowage upload images/2024 ./cat.jpg     # images store, path 2024/cat.jpg
  stowage cat images/2024/cat.jpg
  stowage clear images`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&cfgFiles, "config", nil, "config file path, repeatable (default: ./stowage.yaml)")
	flags.String("backend", "", "storage backend: filesystem, object, s3, minio, memory (env: STOWAGE_STORE_BACKEND)")
	flags.String("root-path", "", "filesystem root directory (default: ./data, env: STOWAGE_STORE_ROOT_PATH)")
	flags.String("bucket", "", "object store bucket (env: STOWAGE_STORE_BUCKET)")
	flags.String("namespace", "", "key namespace for object stores (env: STOWAGE_STORE_NAMESPACE)")
	flags.String("endpoint", "", "object store endpoint, host:port or URL (env: STOWAGE_STORE_ENDPOINT)")
	flags.String("region", "", "object store region (env: STOWAGE_STORE_REGION)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env: STOWAGE_LOG_LEVEL)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
