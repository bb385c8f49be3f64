package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"slices"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/taskstore"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It prints the list and then every
// snapshot pushed by the backend until interrupted.
type WatchCmd struct{}

func (c *WatchCmd) Name() string       { return "watch" }
func (c *WatchCmd) Aliases() []string  { return nil }
func (c *WatchCmd) Synopsis() string   { return "Follow the task list as it changes" }
func (c *WatchCmd) Usage() string      { return "todosync watch" }
func (c *WatchCmd) NeedsBackend() bool { return true }
func (c *WatchCmd) NeedsAuth() bool    { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if err := syncTasks(ctx, env.Tasks); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	st := output.NewStyler(out)
	last := env.Tasks.Tasks()
	output.FormatTasks(out, last, st, cfg.Quiet)

	tasks := env.Tasks.WatchTasks(ctx)
	statuses := env.Tasks.WatchStatus(ctx)
	for {
		select {
		case <-ctx.Done():
			return exitcode.Success

		case list, ok := <-tasks:
			if !ok {
				return exitcode.Success
			}
			if slices.Equal(list, last) {
				continue
			}
			last = list
			fmt.Fprintln(out, output.SnapshotSeparator)
			output.FormatTasks(out, list, st, cfg.Quiet)

		case status, ok := <-statuses:
			if !ok {
				return exitcode.Success
			}
			if status.State != taskstore.Error {
				continue
			}
			fmt.Fprintln(errOut, status)
			if !env.Tasks.Active() {
				return exitcode.BackendError
			}
		}
	}
}
