package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"taskgate/internal/commands"
	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/guard"
	"taskgate/internal/service"
	"taskgate/internal/session"
	"taskgate/internal/storage"
	"taskgate/internal/tasks"
)

const (
	// loginPath is where signed-out users are sent.
	loginPath = "/login"

	// landingPath is where signed-in users leaving login or register land.
	landingPath = "/list"
)

// BackendFactory creates the remote backend from config.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// SetInput sets the reader commands use for interactive input.
func (d *Dispatcher) SetInput(in io.Reader) {
	d.in = in
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A leading "-" left over after parsing is a flag placed after a positional arg
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := newLogger(errOut, debug)

	var app *commands.App
	status := session.StatusResolving
	if commands.NeedsSession(cmd) {
		app, err = d.newApp(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		app.Session.Bootstrap(ctx)
		status = app.Session.State().Status
	}

	if code, stop := d.guard(cmd, status, cfg, out, errOut); stop {
		return code
	}

	return cmd.Run(ctx, cfg, app, positionalArgs, out, errOut)
}

// newApp builds the session and task stores for one invocation. The task
// store follows the session's user through a subscription.
func (d *Dispatcher) newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*commands.App, error) {
	backend, err := d.factory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sess := session.New(backend, storage.NewFile(cfg.TokenPath()), session.WithLogger(logger))
	ts := tasks.New(backend.Tasks(sess), tasks.WithLogger(logger))
	sess.Subscribe(func(st session.State) {
		ts.SetUser(st.UserID())
	})

	return &commands.App{Session: sess, Tasks: ts, In: d.in}, nil
}

// guard applies the route guard to cmd. It reports stop when the command
// must not run, with the exit code to use.
func (d *Dispatcher) guard(cmd commands.Command, status session.Status, cfg *config.Config, out, errOut io.Writer) (int, bool) {
	var target string
	g := guard.New(d.guardConfig(), guard.NavigatorFunc(func(path string) {
		target = path
	}))

	switch g.Evaluate(status, &url.URL{Path: "/" + cmd.Name()}) {
	case guard.RenderContent:
		return exitcode.Success, false
	case guard.RenderLoading:
		fmt.Fprintln(errOut, "error: session unresolved")
		return exitcode.BackendError, true
	}

	if strings.HasPrefix(target, loginPath) {
		fmt.Fprintln(errOut, "error: not logged in (run: taskgate login)")
		return exitcode.AuthError, true
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "already logged in")
	}
	return exitcode.Success, true
}

func (d *Dispatcher) guardConfig() guard.Config {
	return guard.Config{
		FallbackPath: loginPath,
		LandingPath:  landingPath,
		Protected:    d.registry.Paths(guard.Protected),
		AuthOnly:     d.registry.Paths(guard.AuthOnly),
	}
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()
	if name, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
		return "unknown flag: " + name
	}
	return errStr
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
