// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"todosync/internal/backend/firebase"
	"todosync/internal/backend/sqlite"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, openBackend)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// openBackend opens the backend named in config.toml.
func openBackend(ctx context.Context, cfg *config.Config) (service.Backend, error) {
	switch cfg.Backend {
	case config.BackendFirebase:
		b, err := firebase.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendSQLite:
		if err := cfg.EnsureDir(); err != nil {
			return nil, err
		}
		b, err := sqlite.Open(cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
