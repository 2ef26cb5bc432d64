package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given, so an
// explicit empty description can be told apart from an absent one.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(v string) error {
	o.value = v
	o.set = true
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
}

func (c *EditCmd) Name() string         { return "edit" }
func (c *EditCmd) Aliases() []string    { return []string{"update"} }
func (c *EditCmd) Synopsis() string     { return "Change a task's title or description" }
func (c *EditCmd) Access() guard.Access { return guard.Protected }
func (c *EditCmd) Usage() string {
	return "taskgate edit [--title <title>] [--description <text>] <id>"
}

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optString{}
	c.description = optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	id, ok := taskID(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	data := service.UpdateTaskData{
		Title:       c.title.ptr(),
		Description: c.description.ptr(),
	}
	if data.Empty() {
		fmt.Fprintln(errOut, "error: nothing to update (use --title or --description)")
		return exitcode.UserError
	}

	if _, err := app.Tasks.UpdateTask(ctx, id, data); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
