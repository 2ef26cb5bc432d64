package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrTaskIDRequired indicates no task id was provided.
var ErrTaskIDRequired = errors.New("task id required")

// ParseTaskID parses the task id from the first positional argument.
// Ids are positive decimal integers as assigned by the service; a leading
// '#' is accepted so ids can be pasted from list output.
func ParseTaskID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, ErrTaskIDRequired
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("unexpected argument: %s", args[1])
	}

	raw := args[0]
	digits := raw
	if len(digits) > 0 && digits[0] == '#' {
		digits = digits[1:]
	}
	if !isAllDigits(digits) {
		return 0, fmt.Errorf("invalid task id: %s", raw)
	}

	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id: %s", raw)
	}
	return id, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// taskID parses args and reports failures the way every task command does.
func taskID(args []string, errOut io.Writer) (int64, bool) {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 0, false
	}
	return id, true
}
