// Package service defines the backend-agnostic records and collaborator
// interfaces shared by the session and task stores.
package service

import (
	"fmt"
	"strings"
	"time"
)

// User is the identity record admitted into session state.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate reports whether the user record carries a stable id and email.
func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrMalformedSession, u.ID)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: user email missing", ErrMalformedSession)
	}
	return nil
}

// Session is an authenticated identity plus its bearer credential.
// Token is empty for sessions restored by GetSession.
type Session struct {
	User  User
	Token string
}

// SignUpRequest carries the registration payload.
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
}

// Task is a single user-owned task as the remote service represents it.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTaskData is the payload for creating a task.
type CreateTaskData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Validate rejects payloads the remote service would refuse.
func (d CreateTaskData) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTask)
	}
	return nil
}

// UpdateTaskData is a partial update. Nil fields are left untouched.
type UpdateTaskData struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Empty reports whether no field is set.
func (d UpdateTaskData) Empty() bool {
	return d.Title == nil && d.Description == nil && d.Completed == nil
}

// Validate rejects empty updates and blank titles.
func (d UpdateTaskData) Validate() error {
	if d.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidTask)
	}
	if d.Title != nil && strings.TrimSpace(*d.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTask)
	}
	return nil
}
