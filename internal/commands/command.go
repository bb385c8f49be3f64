// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/auth"
	"todosync/internal/config"
	"todosync/internal/taskstore"
)

// Env carries the handles a command runs against. The dispatcher fills in
// only what the command asks for.
type Env struct {
	// Auth is set when NeedsBackend or NeedsAuth returns true.
	Auth *auth.Gateway

	// Tasks is set when NeedsAuth returns true. It is not yet subscribed.
	Tasks *taskstore.Store

	// In is the input stream used for credential prompts.
	In io.Reader
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBackend returns true if the command talks to the identity service.
	NeedsBackend() bool

	// NeedsAuth returns true if the command requires a signed-in user.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, backend settings).
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}
