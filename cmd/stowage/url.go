package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage"
)

var (
	urlPublic      bool
	urlExpires     time.Duration
	urlContentType string
)

var urlCmd = &cobra.Command{
	Use:   "url <prefix>/<path>",
	Short: "Print a signed or public URL for a file",
	Long: `Url prints a signed, expiring GET URL. With --public it prints the
unsigned URL instead.

Filesystem stores sign URLs for the gateway started by 'stowage serve', so
gateway.endpoint and at least one auth key must be configured.

Examples:
  stowage url images/2024/cat.jpg
  stowage url images/2024/cat.jpg --expires 5m --content-type application/octet-stream
  stowage url site/index.html --public`,
	Args: cobra.ExactArgs(1),
	RunE: runURL,
}

func init() {
	urlCmd.Flags().BoolVar(&urlPublic, "public", false, "print the unsigned URL")
	urlCmd.Flags().DurationVar(&urlExpires, "expires", 0, "URL lifetime (default: store.url_expires)")
	urlCmd.Flags().StringVar(&urlContentType, "content-type", "", "Content-Type the server should answer with")
	rootCmd.AddCommand(urlCmd)
}

func runURL(cmd *cobra.Command, args []string) error {
	store, path, err := openTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	signer, ok := store.(stowage.URLSigner)
	if !ok {
		return fmt.Errorf("%T does not hand out URLs", store)
	}

	var u string
	if urlPublic {
		u, err = signer.PublicURL(cmd.Context(), path)
	} else {
		var opts []stowage.URLOption
		if urlExpires > 0 {
			opts = append(opts, stowage.WithExpires(urlExpires))
		}
		if urlContentType != "" {
			opts = append(opts, stowage.WithResponseContentType(urlContentType))
		}
		u, err = signer.URLFor(cmd.Context(), path, opts...)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
	return err
}
