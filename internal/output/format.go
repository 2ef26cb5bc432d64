// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskgate/internal/service"
	"taskgate/internal/tasks"
)

// FormatTask formats a task line.
// Format: "{ID:>4}  [x] {TITLE}\n" (4-wide right-aligned id, two spaces, checkbox, title)
func FormatTask(w io.Writer, task service.Task) {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", task.ID, box, normalizeTitle(task.Title))
}

// FormatTaskDetail formats a task line followed by its description, if any.
func FormatTaskDetail(w io.Writer, task service.Task) {
	FormatTask(w, task)
	if desc := normalizeLine(task.Description); desc != "" {
		fmt.Fprintf(w, "          %s\n", desc)
	}
}

// FormatTasks renders a store snapshot. It returns false if there was
// nothing to print.
func FormatTasks(w io.Writer, snap tasks.Snapshot) bool {
	for _, task := range snap.Tasks {
		FormatTaskDetail(w, task)
	}
	return len(snap.Tasks) > 0
}

// FormatUser formats the signed-in user.
// Format: "{ID}  {EMAIL}  {NAME}\n"
func FormatUser(w io.Writer, user service.User) {
	name := strings.TrimSpace(user.Name)
	if name == "" {
		fmt.Fprintf(w, "%d  %s\n", user.ID, user.Email)
		return
	}
	fmt.Fprintf(w, "%d  %s  %s\n", user.ID, user.Email, name)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeLine(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
