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
	Register(&ListCmd{})
}

// ListCmd implements the list command. `todosync` with no args runs it.
type ListCmd struct{}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks, newest first" }
func (c *ListCmd) Usage() string      { return "todosync list" }
func (c *ListCmd) NeedsBackend() bool { return true }
func (c *ListCmd) NeedsAuth() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if err := syncTasks(ctx, env.Tasks); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	output.FormatTasks(out, env.Tasks.Tasks(), output.NewStyler(out), cfg.Quiet)
	return exitcode.Success
}
