package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given, so an
// explicit empty value can clear a field.
type optString struct {
	set   bool
	value string
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(v string) error {
	o.set = true
	o.value = v
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(title string) { c.title.Set(title) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(desc string) { c.description.Set(desc) }

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Change a task's title or description" }
func (c *EditCmd) Usage() string      { return "todosync edit [--title <text>] [--desc <text>] <n>" }
func (c *EditCmd) NeedsBackend() bool { return true }
func (c *EditCmd) NeedsAuth() bool    { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description = optString{}, optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "desc", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if !c.title.set && !c.description.set {
		fmt.Fprintln(errOut, "error: nothing to change (use --title or --desc)")
		return exitcode.UserError
	}
	if c.title.set && strings.TrimSpace(c.title.value) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task, code := resolveTask(ctx, env.Tasks, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if c.title.set {
		task.Title = strings.TrimSpace(c.title.value)
	}
	if c.description.set {
		task.Description = c.description.value
	}

	if err := env.Tasks.Update(ctx, task); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", env.Tasks.Status().Message)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
