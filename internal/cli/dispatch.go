// Package cli parses the command line and runs commands against a backend.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/auth"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/taskstore"
)

// BackendFactory opens the backend selected by cfg.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config) (service.Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// in is used for credential prompts. Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, in, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], in, out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, in, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A positional starting with - should have been parsed as a flag
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	log := logging.New(errOut, debug)
	env := &commands.Env{In: in}

	if !cmd.NeedsBackend() && !cmd.NeedsAuth() {
		return cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
	}

	backend, err := d.factory(ctx, cfg)
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			fmt.Fprintf(errOut, "error: %s (edit %s)\n", err, cfg.ConfigPath())
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("closing backend", "err", err)
		}
	}()

	env.Auth = auth.NewGateway(backend, auth.FileSessions{Path: cfg.SessionPath()}, auth.WithLogger(log))
	if err := env.Auth.Restore(ctx); err != nil {
		if cmd.NeedsAuth() {
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		log.Warn("session not restored", "err", err)
	}

	if !cmd.NeedsAuth() {
		return cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
	}

	sess, ok := env.Auth.Session()
	if !ok {
		fmt.Fprintf(errOut, "error: not signed in (run: %s login)\n", config.AppName)
		return exitcode.AuthError
	}

	tasks, err := backend.Tasks(ctx, sess)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}

	env.Tasks = taskstore.New(tasks, env.Auth, taskstore.WithLogger(log))
	defer env.Tasks.Unsubscribe()

	return cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	// Missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		return errStr
	}

	if name, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
		return "unknown flag: " + name
	}

	return errStr
}
