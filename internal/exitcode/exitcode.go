// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion, including redirects that need
	// no action (login while already signed in).
	Success = 0

	// UserError indicates a user error (bad args, invalid task, not found).
	UserError = 1

	// AuthError indicates a missing, rejected or expired session.
	AuthError = 2

	// BackendError indicates a service, network or storage failure.
	BackendError = 3
)
