package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/stowage/config"
)

func ExampleLoad() {
	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Backend: %s, Port: %d\n", cfg.Store.Backend, cfg.Server.Port)
	// Output: Backend: filesystem, Port: 5708
}

func ExampleWithContext() {
	cfg, _ := config.Load(nil, nil)

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved root path: %s\n", retrieved.Store.RootPath)
	// Output: Retrieved root path: ./data
}
