package service

import (
	"context"

	"golang.org/x/oauth2"
)

// AuthService is the remote authentication collaborator.
type AuthService interface {
	// GetSession resolves the session bound to token.
	// Returns a nil session if the token is not bound to an active session.
	GetSession(ctx context.Context, token string) (*Session, error)

	// SignInWithPassword checks credentials and opens a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignUpWithPassword registers a user.
	// The returned session may be nil if the service does not log in on register.
	SignUpWithPassword(ctx context.Context, req SignUpRequest) (*Session, error)

	// SignOut ends the session bound to token.
	SignOut(ctx context.Context, token string) error
}

// TaskService is the remote task storage collaborator.
// Every call is scoped to the owning user.
type TaskService interface {
	// List returns every task owned by userID in service order.
	List(ctx context.Context, userID int64) ([]Task, error)

	// Create stores a new task; the service assigns its id.
	Create(ctx context.Context, userID int64, data CreateTaskData) (Task, error)

	// Update applies a partial update and returns the stored task.
	Update(ctx context.Context, userID, id int64, data UpdateTaskData) (Task, error)

	// Remove deletes a task.
	Remove(ctx context.Context, userID, id int64) error

	// Toggle flips the completion flag and returns the stored task.
	Toggle(ctx context.Context, userID, id int64) (Task, error)
}

// Backend bundles both collaborators.
// Task calls draw their bearer credential from tokens on every request.
type Backend interface {
	AuthService
	Tasks(tokens oauth2.TokenSource) TaskService
}
