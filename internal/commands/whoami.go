package commands

import (
	"context"
	"flag"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/output"
	"taskgate/internal/service"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string         { return "whoami" }
func (c *WhoamiCmd) Aliases() []string    { return nil }
func (c *WhoamiCmd) Synopsis() string     { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string        { return "taskgate whoami [common flags]" }
func (c *WhoamiCmd) Access() guard.Access { return guard.Protected }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	st := app.Session.State()
	if st.User == nil {
		return report(errOut, service.ErrUnauthenticated)
	}
	output.FormatUser(out, *st.User)
	return exitcode.Success
}
