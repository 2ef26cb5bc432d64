// Package session holds the client's authenticated session and persists its
// bearer token to durable storage.
package session

import "taskgate/internal/service"

// Status is the resolution state of the session.
type Status int

const (
	// StatusResolving is the bootstrap window after start.
	StatusResolving Status = iota

	// StatusUnauthenticated means no usable session exists.
	StatusUnauthenticated

	// StatusAuthenticated means user and token are both present.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusResolving:
		return "resolving"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is a snapshot of the session.
type State struct {
	Status Status
	User   *service.User
	Token  string
}

// UserID returns the resolved user id, or 0 without a session.
func (s State) UserID() int64 {
	if s.Status != StatusAuthenticated || s.User == nil {
		return 0
	}
	return s.User.ID
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
