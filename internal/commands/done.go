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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It toggles, so running it on a
// completed task reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string   { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string      { return "todosync done <n>" }
func (c *DoneCmd) NeedsBackend() bool { return true }
func (c *DoneCmd) NeedsAuth() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(ctx, env.Tasks, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := env.Tasks.Toggle(ctx, task); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", env.Tasks.Status().Message)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
