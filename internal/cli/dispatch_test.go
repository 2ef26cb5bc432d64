package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskgate/internal/cli"
	"taskgate/internal/commands"
	"taskgate/internal/config"
	"taskgate/internal/exitcode"
	"taskgate/internal/service"
	"taskgate/internal/testutil"
)

// testFactory creates a backend factory that returns the given FakeBackend.
func testFactory(backend *testutil.FakeBackend) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error) {
		return backend, nil
	}
}

type harness struct {
	t          *testing.T
	dir        string
	backend    *testutil.FakeBackend
	dispatcher *cli.Dispatcher
}

// newHarness points the config dir at a temp dir so every run in a test
// shares one token file.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKGATE_CONFIG_DIR", dir)

	backend := testutil.NewFakeBackend()
	return &harness{
		t:          t,
		dir:        dir,
		backend:    backend,
		dispatcher: cli.NewDispatcher(commands.DefaultRegistry, testFactory(backend)),
	}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := h.dispatcher.Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) login() {
	h.t.Helper()
	h.backend.AddUser(5, "ann@example.com", "Ann", "secret")
	code, stdout, stderr := h.run("login", "--email", "ann@example.com", "--password", "secret")
	if code != exitcode.Success || stdout != "ok\n" || stderr != "" {
		h.t.Fatalf("login: code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
}

func (h *harness) tokenPath() string {
	return filepath.Join(h.dir, config.TokenFile)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run("help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
	if h.backend.Calls("getSession") != 0 {
		t.Error("help should not resolve a session")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run("version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskgate "+commands.Version+"\n" {
		t.Errorf("unexpected version output %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("login", "--email")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -email\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_ProtectedWithoutSession(t *testing.T) {
	for _, args := range [][]string{nil, {"list"}, {"ls"}, {"add", "x"}, {"done", "1"}, {"whoami"}} {
		h := newHarness(t)

		code, stdout, stderr := h.run(args...)

		if code != exitcode.AuthError {
			t.Errorf("%v: expected exit code %d, got %d", args, exitcode.AuthError, code)
		}
		if stdout != "" {
			t.Errorf("%v: expected no stdout, got %q", args, stdout)
		}
		if stderr != "error: not logged in (run: taskgate login)\n" {
			t.Errorf("%v: unexpected stderr %q", args, stderr)
		}
		if n := h.backend.TotalTaskCalls(); n != 0 {
			t.Errorf("%v: expected no task calls, got %d", args, n)
		}
	}
}

func TestDispatcher_LoginPersistsSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	if _, err := os.Stat(h.tokenPath()); err != nil {
		t.Fatalf("expected token file: %v", err)
	}

	code, stdout, stderr := h.run("whoami")
	if code != exitcode.Success {
		t.Fatalf("whoami: code=%d stderr=%q", code, stderr)
	}
	if stdout != "5  ann@example.com  Ann\n" {
		t.Errorf("unexpected whoami output %q", stdout)
	}
}

func TestDispatcher_LoginWhileSignedIn(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, stdout, stderr := h.run("login", "--email", "ann@example.com", "--password", "secret")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "already logged in\n" || stderr != "" {
		t.Errorf("stdout=%q stderr=%q", stdout, stderr)
	}
	if n := h.backend.Calls("signIn"); n != 1 {
		t.Errorf("expected 1 sign in call, got %d", n)
	}

	code, stdout, _ = h.run("register", "--quiet", "--email", "x@example.com", "--password", "pw")
	if code != exitcode.Success || stdout != "" {
		t.Errorf("quiet register while signed in: code=%d stdout=%q", code, stdout)
	}
}

func TestDispatcher_LoginPasswordFromInput(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(5, "ann@example.com", "Ann", "secret")
	h.dispatcher.SetInput(strings.NewReader("secret\n"))

	code, stdout, stderr := h.run("login", "--quiet", "--email", "ann@example.com")

	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (stderr %q)", code, stderr)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("quiet login should print nothing: stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestDispatcher_LoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(5, "ann@example.com", "Ann", "secret")

	code, stdout, stderr := h.run("login", "--email", "ann@example.com", "--password", "nope")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: sign in: Incorrect email or password\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if _, err := os.Stat(h.tokenPath()); !os.IsNotExist(err) {
		t.Error("failed login must not write a token")
	}
}

func TestDispatcher_LoginMissingEmail(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("login", "--password", "secret")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: email and password required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_RegisterThenWhoami(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run("register", "--email", "new@example.com", "--name", "Newt", "--password", "pw")
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("register: code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}

	_, stdout, _ = h.run("whoami")
	if stdout != "1  new@example.com  Newt\n" {
		t.Errorf("unexpected whoami output %q", stdout)
	}
}

func TestDispatcher_RegisterExistingEmail(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(5, "ann@example.com", "Ann", "secret")

	code, _, stderr := h.run("register", "--email", "ann@example.com", "--password", "pw")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_TaskLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, stdout, stderr := h.run("add", "-d", "2% for coffee", "Buy", "milk")
	if code != exitcode.Success || stdout != "ok 1\n" {
		t.Fatalf("add: code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
	h.run("add", "Call", "mom")

	if code, stdout, _ = h.run("done", "2"); code != exitcode.Success || stdout != "ok (completed)\n" {
		t.Fatalf("done: code=%d stdout=%q", code, stdout)
	}

	_, stdout, _ = h.run()
	expected := "   1  [ ] Buy milk\n          2% for coffee\n   2  [x] Call mom\n"
	if stdout != expected {
		t.Errorf("list:\nexpected %q\ngot      %q", expected, stdout)
	}

	_, stdout, _ = h.run("list", "--open")
	if stdout != "   1  [ ] Buy milk\n          2% for coffee\n" {
		t.Errorf("list --open: got %q", stdout)
	}

	if code, _, stderr = h.run("edit", "--title", "Buy oat milk", "--description", "", "1"); code != exitcode.Success {
		t.Fatalf("edit: code=%d stderr=%q", code, stderr)
	}
	task, _ := h.backend.StoredTask(1)
	if task.Title != "Buy oat milk" || task.Description != "" {
		t.Errorf("edit not applied: %+v", task)
	}

	if code, stdout, _ = h.run("rm", "#2"); code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("rm: code=%d stdout=%q", code, stdout)
	}
	if _, ok := h.backend.StoredTask(2); ok {
		t.Error("task 2 should be deleted")
	}

	if code, stdout, _ = h.run("toggle", "2"); code != exitcode.UserError {
		t.Errorf("toggle of deleted task: expected %d, got %d (stdout %q)", exitcode.UserError, code, stdout)
	}
}

func TestDispatcher_EmptyList(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, stdout, _ := h.run("list")
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout)
	}

	_, stdout, _ = h.run("list", "--quiet")
	if stdout != "" {
		t.Errorf("quiet empty list should print nothing, got %q", stdout)
	}
}

func TestDispatcher_ListBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.backend.ListErr = testutil.ErrUnreachable

	code, _, stderr := h.run("list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_TaskArgErrors(t *testing.T) {
	h := newHarness(t)
	h.login()

	tests := []struct {
		args   []string
		stderr string
	}{
		{[]string{"add"}, "error: title required\n"},
		{[]string{"add", "  "}, "error: title required\n"},
		{[]string{"done"}, "error: task id required\n"},
		{[]string{"rm", "abc"}, "error: invalid task id: abc\n"},
		{[]string{"rm", "0"}, "error: invalid task id: 0\n"},
		{[]string{"edit", "1"}, "error: nothing to update (use --title or --description)\n"},
		{[]string{"list", "extra"}, "error: unexpected argument: extra\n"},
	}

	for _, tt := range tests {
		code, _, stderr := h.run(tt.args...)
		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stderr != tt.stderr {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.stderr, stderr)
		}
	}
	if n := h.backend.TotalTaskCalls(); n != 0 {
		t.Errorf("argument errors should not reach the backend, got %d calls", n)
	}
}

func TestDispatcher_Logout(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, stdout, _ := h.run("logout")
	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("logout: code=%d stdout=%q", code, stdout)
	}
	if _, err := os.Stat(h.tokenPath()); !os.IsNotExist(err) {
		t.Error("expected token file to be removed")
	}
	if n := h.backend.Calls("signOut"); n != 1 {
		t.Errorf("expected 1 remote sign out, got %d", n)
	}

	code, stdout, _ = h.run("logout")
	if code != exitcode.Success || stdout != "not logged in\n" {
		t.Errorf("second logout: code=%d stdout=%q", code, stdout)
	}
}

func TestDispatcher_LogoutRevokedToken(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.tokenPath(), []byte(`{"authToken":"revoked"}`), 0600); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := h.run("logout")

	if code != exitcode.Success || stdout != "not logged in\n" || stderr != "" {
		t.Errorf("code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
	if _, err := os.Stat(h.tokenPath()); !os.IsNotExist(err) {
		t.Error("revoked token should be removed")
	}
}

func TestDispatcher_LogoutRemoteFailure(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.backend.SignOutErr = testutil.ErrUnreachable

	code, stdout, stderr := h.run("logout")

	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("code=%d stdout=%q", code, stdout)
	}
	if !strings.Contains(stderr, "remote sign out failed") {
		t.Errorf("expected a warning on stderr, got %q", stderr)
	}
	if code, _, _ = h.run("whoami"); code != exitcode.AuthError {
		t.Errorf("session should be gone after logout, whoami exit %d", code)
	}
}

func TestDispatcher_DebugLogging(t *testing.T) {
	h := newHarness(t)

	_, _, stderr := h.run("list", "--debug")

	if !strings.Contains(stderr, "no stored token") {
		t.Errorf("expected debug log line, got %q", stderr)
	}
}
