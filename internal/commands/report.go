package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskgate/internal/exitcode"
	"taskgate/internal/service"
)

// notLoggedIn is printed when a protected command runs without a session.
const notLoggedIn = "error: not logged in (run: taskgate login)"

// report prints err to errOut and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	var remote *service.RemoteError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError
	case errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrConflict):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.As(err, &remote) && remote.Code >= http.StatusBadRequest && remote.Code < http.StatusInternalServerError:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// readPassword reads one line from in. Trailing CR/LF is dropped; other
// whitespace is kept.
func readPassword(in io.Reader) (string, error) {
	if in == nil {
		return "", service.ErrInvalidCredentials
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
