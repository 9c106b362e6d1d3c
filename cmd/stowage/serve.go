package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/config"
	"github.com/sagarc03/stowage/filesystem"
	stowagehttp "github.com/sagarc03/stowage/http"
	"github.com/sagarc03/stowage/stores"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Serve exposes the configured backend over HTTP. The first path segment
of a request selects the store prefix:

  GET    /{prefix}     list files as JSON
  GET    /{prefix}/*   read a file
  HEAD   /{prefix}/*   check a file exists
  PUT    /{prefix}/*   write a file
  DELETE /{prefix}/*   delete a file or directory

Set auth.read or auth.write to private to require signed requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: STOWAGE_SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

// newGateway builds the gateway handler for cfg.
func newGateway(cfg *config.Config) (*stowagehttp.Handler, error) {
	secrets, err := cfg.SecretStore()
	if err != nil {
		return nil, fmt.Errorf("load access keys: %w", err)
	}
	verifier := stowage.NewSignatureVerifier(cfg.Auth.AWS.Region, cfg.Auth.AWS.Service, secrets)

	var readVerifier, writeVerifier stowagehttp.RequestVerifier
	if cfg.Auth.Read == "private" {
		readVerifier = verifier
	}
	if cfg.Auth.Write == "private" {
		writeVerifier = verifier
	}
	if (readVerifier != nil || writeVerifier != nil) && len(secrets.AccessKeys()) == 0 {
		slog.Warn("private access configured without any access keys; every request will be rejected")
	}

	factory := func(prefix string) (stowage.Store, error) {
		return newStore(cfg, prefix)
	}

	handlerConfig := stowagehttp.HandlerConfig{
		ReadVerifier:  readVerifier,
		WriteVerifier: writeVerifier,
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		PrefixProbe:   prefixProbe(cfg, factory),
	}

	return stowagehttp.NewHandler(&handlerConfig, factory), nil
}

// prefixProbe keeps anonymous reads from opening a store per made-up prefix.
// Filesystem stores create their prefix directory, so that backend is probed
// on disk instead of through a store.
func prefixProbe(cfg *config.Config, factory stowagehttp.Factory) stowagehttp.PrefixProbe {
	if cfg.Store.Backend == stores.Filesystem {
		rootPath := cfg.Store.RootPath
		return func(_ context.Context, prefix string) (bool, error) {
			return filesystem.HasPrefix(rootPath, prefix)
		}
	}
	return stowagehttp.ListingProbe(factory)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	handler, err := newGateway(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := handler.Close(); err != nil {
			slog.Warn("failed to close stores", "err", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("starting server", "addr", addr, "backend", cfg.Store.Backend,
		"read", cfg.Auth.Read, "write", cfg.Auth.Write)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
