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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todosync help" }
func (c *HelpCmd) NeedsBackend() bool { return false }
func (c *HelpCmd) NeedsAuth() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todosync                                          List tasks, newest first
  todosync list [common flags]
  todosync add [common flags] [--desc <text>] <title...>
  todosync create [common flags] [--desc <text>] <title...>
  todosync edit [common flags] [--title <text>] [--desc <text>] <n>
  todosync done [common flags] <n>
  todosync toggle [common flags] <n>
  todosync rm [common flags] <n>
  todosync watch [common flags]
  todosync signup [common flags] [--email <address>]
  todosync login [common flags] [--email <address>]
  todosync logout [common flags]
  todosync whoami [common flags]
  todosync help
  todosync version

Tasks are referred to by the number printed by list.
Passwords are read from the terminal, or from the first line of stdin.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
