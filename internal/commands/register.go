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
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	email    string
	name     string
	password string
}

func (c *RegisterCmd) Name() string         { return "register" }
func (c *RegisterCmd) Aliases() []string    { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string     { return "Create an account and sign in" }
func (c *RegisterCmd) Access() guard.Access { return guard.AuthOnly }
func (c *RegisterCmd) Usage() string {
	return "taskgate register --email <email> [--name <name>] [--password <password>]"
}

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.name, "n", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	password, code := passwordFrom(c.password, app, cfg, errOut)
	if code != exitcode.Success {
		return code
	}

	req := service.SignUpRequest{Email: c.email, Password: password, Name: c.name}
	if err := app.Session.SignUp(ctx, req); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
