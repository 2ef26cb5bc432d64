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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string         { return "rm" }
func (c *RmCmd) Aliases() []string    { return []string{"delete"} }
func (c *RmCmd) Synopsis() string     { return "Delete a task" }
func (c *RmCmd) Usage() string        { return "taskgate rm <id>" }
func (c *RmCmd) Access() guard.Access { return guard.Protected }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	id, ok := taskID(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	if err := app.Tasks.DeleteTask(ctx, id); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
