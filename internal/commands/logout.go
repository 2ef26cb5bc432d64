package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string         { return "logout" }
func (c *LogoutCmd) Aliases() []string    { return []string{"signout"} }
func (c *LogoutCmd) Synopsis() string     { return "Sign out and remove stored credentials" }
func (c *LogoutCmd) Usage() string        { return "taskgate logout [common flags]" }
func (c *LogoutCmd) Access() guard.Access { return guard.Public }
func (c *LogoutCmd) UsesSession() bool    { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	wasSignedIn := app.Session.State().Status == session.StatusAuthenticated

	// Always runs so a token the service no longer accepts is still removed.
	app.Session.SignOut(ctx)

	if cfg.Quiet {
		return exitcode.Success
	}
	if wasSignedIn {
		fmt.Fprintln(out, "ok")
	} else {
		fmt.Fprintln(out, "not logged in")
	}
	return exitcode.Success
}
