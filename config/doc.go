// Package config provides configuration loading and validation for stowage.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (STOWAGE_ prefix)
//  4. CLI flags
//
// Without explicit files, ./stowage.yaml is read when present.
//
// # Usage
//
//	cfg, err := config.Load([]string{"stowage.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts, err := cfg.Options()
//	store, err := stores.New(cfg.Store.Backend, "images", opts)
//
// # Environment Variables
//
// All config keys map to environment variables with STOWAGE_ prefix:
//   - store.backend → STOWAGE_STORE_BACKEND
//   - store.root_path → STOWAGE_STORE_ROOT_PATH
//   - server.port → STOWAGE_SERVER_PORT
//   - auth.read → STOWAGE_AUTH_READ
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Backend must be filesystem, object, s3, minio, or memory
//   - The filesystem backend needs root_path
//   - Port must be 1-65535
//   - Auth read/write must be public or private
//   - Log level must be debug, info, warn, or error
package config
