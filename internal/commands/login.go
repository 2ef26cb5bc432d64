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
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
// The password comes from --password or, when that is empty, the first line
// of standard input.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string         { return "login" }
func (c *LoginCmd) Aliases() []string    { return []string{"signin"} }
func (c *LoginCmd) Synopsis() string     { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string        { return "taskgate login --email <email> [--password <password>]" }
func (c *LoginCmd) Access() guard.Access { return guard.AuthOnly }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	password, code := passwordFrom(c.password, app, cfg, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := app.Session.SignIn(ctx, c.email, password); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// passwordFrom returns flagValue, or reads a password from app.In when it
// is empty.
func passwordFrom(flagValue string, app *App, cfg *config.Config, errOut io.Writer) (string, int) {
	if flagValue != "" {
		return flagValue, exitcode.Success
	}
	if !cfg.Quiet {
		fmt.Fprint(errOut, "Password: ")
	}
	password, err := readPassword(app.In)
	if !cfg.Quiet {
		fmt.Fprintln(errOut)
	}
	if err != nil {
		return "", report(errOut, err)
	}
	return password, exitcode.Success
}
