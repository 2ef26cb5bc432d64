package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/output"
	"taskgate/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskgate` (no args) and `taskgate list`.
type ListCmd struct {
	open bool
}

func (c *ListCmd) Name() string         { return "list" }
func (c *ListCmd) Aliases() []string    { return []string{"ls"} }
func (c *ListCmd) Synopsis() string     { return "List tasks" }
func (c *ListCmd) Usage() string        { return "taskgate list [--open]" }
func (c *ListCmd) Access() guard.Access { return guard.Protected }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	app.Tasks.FetchTasks(ctx)
	snap := app.Tasks.Snapshot()
	if snap.Err != "" {
		fmt.Fprintf(errOut, "error: backend error: %s\n", snap.Err)
		return exitcode.BackendError
	}

	if c.open {
		snap.Tasks = openTasks(snap.Tasks)
	}
	if !output.FormatTasks(out, snap) && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

func openTasks(all []service.Task) []service.Task {
	open := all[:0]
	for _, t := range all {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}
