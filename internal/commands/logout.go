package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return []string{"signout"} }
func (c *LogoutCmd) Synopsis() string   { return "Sign out and remove the stored session" }
func (c *LogoutCmd) Usage() string      { return "todosync logout" }
func (c *LogoutCmd) NeedsBackend() bool { return true }
func (c *LogoutCmd) NeedsAuth() bool    { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if _, ok := env.Auth.Session(); !ok && !cfg.HasSession() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not signed in")
		}
		return exitcode.Success
	}

	if err := env.Auth.SignOut(ctx); err != nil {
		if cfg.HasSession() {
			fmt.Fprintf(errOut, "error: failed to remove session: %v\n", err)
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "warning: remote sign out failed: %v\n", err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
