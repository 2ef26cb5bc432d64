// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"taskgate/internal/config"
	"taskgate/internal/guard"
	"taskgate/internal/session"
	"taskgate/internal/tasks"
)

// App is the per-process state handed to commands that use a session.
type App struct {
	// Session is the process's single session store, already bootstrapped.
	Session *session.Store

	// Tasks follows Session's user.
	Tasks *tasks.Store

	// In supplies interactive input such as passwords.
	In io.Reader
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Access classifies the command for the route guard.
	// Protected commands need a session; AuthOnly commands need its absence.
	Access() guard.Access

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// app is nil for commands that do not use a session.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int
}

// SessionUser is implemented by public commands that still read or change
// the session, such as logout.
type SessionUser interface {
	UsesSession() bool
}

// NeedsSession reports whether the dispatcher must build and bootstrap a
// session before running c.
func NeedsSession(c Command) bool {
	if c.Access() != guard.Public {
		return true
	}
	if su, ok := c.(SessionUser); ok {
		return su.UsesSession()
	}
	return false
}
