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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return nil }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "todosync rm <n>" }
func (c *RmCmd) NeedsBackend() bool { return true }
func (c *RmCmd) NeedsAuth() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(ctx, env.Tasks, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := env.Tasks.Delete(ctx, task.ID); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", env.Tasks.Status().Message)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
