package service

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated means an operation needs a resolved user and has none.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized means the remote service rejected the credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the remote resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the remote resource already exists.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials means email or password is missing.
	ErrInvalidCredentials = errors.New("email and password required")

	// ErrInvalidTask means a task payload failed local validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrMalformedSession means the auth collaborator returned an unusable session.
	ErrMalformedSession = errors.New("malformed session")

	// ErrStaleResponse means a response arrived after the store switched users.
	ErrStaleResponse = errors.New("response discarded: user changed")
)

// RemoteError is a failure reported by the remote service.
// Message is shown to the user verbatim.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.Code); text != "" {
		return text
	}
	return "remote error"
}

// Is maps HTTP status codes onto the package sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}
