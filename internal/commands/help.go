package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string         { return "help" }
func (c *HelpCmd) Aliases() []string    { return nil }
func (c *HelpCmd) Synopsis() string     { return "Print usage" }
func (c *HelpCmd) Usage() string        { return "taskgate help" }
func (c *HelpCmd) Access() guard.Access { return guard.Public }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskgate                                          List tasks
  taskgate list [common flags] [--open]             List tasks
  taskgate add [common flags] [-d <text>] <title...>
  taskgate edit [common flags] [--title <title>] [--description <text>] <id>
  taskgate done [common flags] <id>                 Toggle completion
  taskgate rm [common flags] <id>
  taskgate whoami [common flags]
  taskgate login [common flags] --email <email> [--password <password>]
  taskgate register [common flags] --email <email> [--name <name>] [--password <password>]
  taskgate logout [common flags]
  taskgate help
  taskgate version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  TASKGATE_API_URL      Base URL of the task service
  TASKGATE_TIMEOUT      Per-request timeout (e.g. 10s)
  TASKGATE_CONFIG_DIR   Config directory
`
