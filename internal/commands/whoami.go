package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Print the signed-in user" }
func (c *WhoamiCmd) Usage() string      { return "todosync whoami" }
func (c *WhoamiCmd) NeedsBackend() bool { return true }
func (c *WhoamiCmd) NeedsAuth() bool    { return false }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	user, ok := env.Auth.CurrentUser()
	if !ok {
		fmt.Fprintln(errOut, "error: not signed in (run: todosync login)")
		return exitcode.AuthError
	}
	output.FormatUser(out, user)
	return exitcode.Success
}
