package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
}

func (c *AddCmd) Name() string         { return "add" }
func (c *AddCmd) Aliases() []string    { return []string{"create"} }
func (c *AddCmd) Synopsis() string     { return "Create a task" }
func (c *AddCmd) Usage() string        { return "taskgate add [--description <text>] <title...>" }
func (c *AddCmd) Access() guard.Access { return guard.Protected }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task, err := app.Tasks.CreateTask(ctx, service.CreateTaskData{
		Title:       title,
		Description: c.description,
	})
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %d\n", task.ID)
	}
	return exitcode.Success
}
