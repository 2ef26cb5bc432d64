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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It flips the completion flag, so
// running it twice reopens the task.
type DoneCmd struct{}

func (c *DoneCmd) Name() string         { return "done" }
func (c *DoneCmd) Aliases() []string    { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string     { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string        { return "taskgate done <id>" }
func (c *DoneCmd) Access() guard.Access { return guard.Protected }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	id, ok := taskID(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	task, err := app.Tasks.ToggleTaskCompletion(ctx, id)
	if err != nil {
		return report(errOut, err)
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	if task.Completed {
		fmt.Fprintln(out, "ok (completed)")
	} else {
		fmt.Fprintln(out, "ok (reopened)")
	}
	return exitcode.Success
}
