// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"taskgate/internal/service"
)

// FakeBackend is an in-memory implementation of service.Backend for testing.
type FakeBackend struct {
	mu       sync.Mutex
	users    map[string]fakeUser // email -> user
	sessions map[string]int64    // token -> user id
	tasks    map[int64]service.Task
	nextUser int64
	nextTask int64
	now      time.Time

	// Error injection for testing
	GetSessionErr error
	SignInErr     error
	SignUpErr     error
	SignOutErr    error
	ListErr       error
	CreateErr     error
	UpdateErr     error
	RemoveErr     error
	ToggleErr     error

	// SignUpWithoutSession makes SignUpWithPassword return a nil session.
	SignUpWithoutSession bool

	// Before runs at the start of every task call with the operation name.
	// Tests use it to block or to change state mid-flight.
	Before func(op string)

	calls map[string]int
}

type fakeUser struct {
	user     service.User
	password string
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:    make(map[string]fakeUser),
		sessions: make(map[string]int64),
		tasks:    make(map[int64]service.Task),
		nextUser: 1,
		nextTask: 1,
		now:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		calls:    make(map[string]int),
	}
}

// AddUser registers a user with a fixed id.
func (f *FakeBackend) AddUser(id int64, email, name, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := service.User{ID: id, Email: email, Name: name}
	f.users[email] = fakeUser{user: u, password: password}
	if id >= f.nextUser {
		f.nextUser = id + 1
	}
	return u
}

// AddSession binds token to a user id.
func (f *FakeBackend) AddSession(token string, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = userID
}

// AddTask stores a task with a fixed id.
func (f *FakeBackend) AddTask(userID, id int64, title string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        id,
		Title:     title,
		Completed: completed,
		UserID:    userID,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.tasks[id] = t
	if id >= f.nextTask {
		f.nextTask = id + 1
	}
	return t
}

// Calls returns how many times op was invoked.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalTaskCalls returns the number of task service calls of any kind.
func (f *FakeBackend) TotalTaskCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range []string{"list", "create", "update", "remove", "toggle"} {
		n += f.calls[op]
	}
	return n
}

// StoredTask returns the server-side copy of a task.
func (f *FakeBackend) StoredTask(id int64) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

func (f *FakeBackend) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	hook := f.Before
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
}

// GetSession implements service.AuthService.
func (f *FakeBackend) GetSession(ctx context.Context, token string) (*service.Session, error) {
	f.record("getSession")
	if f.GetSessionErr != nil {
		return nil, f.GetSessionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	for _, u := range f.users {
		if u.user.ID == id {
			return &service.Session{User: u.user}, nil
		}
	}
	return nil, nil
}

// SignInWithPassword implements service.AuthService.
func (f *FakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*service.Session, error) {
	f.record("signIn")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.password != password {
		return nil, &service.RemoteError{Code: 401, Message: "Incorrect email or password"}
	}
	return f.openSession(u.user), nil
}

// SignUpWithPassword implements service.AuthService.
func (f *FakeBackend) SignUpWithPassword(ctx context.Context, req service.SignUpRequest) (*service.Session, error) {
	f.record("signUp")
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[req.Email]; exists {
		return nil, &service.RemoteError{Code: 409, Message: "A user with this email already exists"}
	}
	u := service.User{ID: f.nextUser, Email: req.Email, Name: req.Name}
	f.nextUser++
	f.users[req.Email] = fakeUser{user: u, password: req.Password}
	if f.SignUpWithoutSession {
		return nil, nil
	}
	return f.openSession(u), nil
}

func (f *FakeBackend) openSession(u service.User) *service.Session {
	token := fmt.Sprintf("token-%d-%d", u.ID, len(f.sessions)+1)
	f.sessions[token] = u.ID
	return &service.Session{User: u, Token: token}
}

// SignOut implements service.AuthService.
func (f *FakeBackend) SignOut(ctx context.Context, token string) error {
	f.record("signOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

// Tasks implements service.Backend. Each call checks that tokens yields a
// token bound to the requested user.
func (f *FakeBackend) Tasks(tokens oauth2.TokenSource) service.TaskService {
	return &fakeTasks{f: f, tokens: tokens}
}

type fakeTasks struct {
	f      *FakeBackend
	tokens oauth2.TokenSource
}

func (t *fakeTasks) authorize(userID int64) error {
	if t.tokens == nil {
		return nil
	}
	tok, err := t.tokens.Token()
	if err != nil {
		return err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if id, ok := t.f.sessions[tok.AccessToken]; !ok || id != userID {
		return &service.RemoteError{Code: 401, Message: "Not authorized to access these tasks"}
	}
	return nil
}

func (t *fakeTasks) List(ctx context.Context, userID int64) ([]service.Task, error) {
	t.f.record("list")
	if t.f.ListErr != nil {
		return nil, t.f.ListErr
	}
	if err := t.authorize(userID); err != nil {
		return nil, err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	var result []service.Task
	for _, task := range t.f.tasks {
		if task.UserID == userID {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (t *fakeTasks) Create(ctx context.Context, userID int64, data service.CreateTaskData) (service.Task, error) {
	t.f.record("create")
	if t.f.CreateErr != nil {
		return service.Task{}, t.f.CreateErr
	}
	if err := t.authorize(userID); err != nil {
		return service.Task{}, err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.now = t.f.now.Add(time.Second)
	task := service.Task{
		ID:          t.f.nextTask,
		Title:       data.Title,
		Description: data.Description,
		Completed:   data.Completed,
		UserID:      userID,
		CreatedAt:   t.f.now,
		UpdatedAt:   t.f.now,
	}
	t.f.nextTask++
	t.f.tasks[task.ID] = task
	return task, nil
}

func (t *fakeTasks) Update(ctx context.Context, userID, id int64, data service.UpdateTaskData) (service.Task, error) {
	t.f.record("update")
	if t.f.UpdateErr != nil {
		return service.Task{}, t.f.UpdateErr
	}
	if err := t.authorize(userID); err != nil {
		return service.Task{}, err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	task, err := t.f.owned(userID, id)
	if err != nil {
		return service.Task{}, err
	}
	if data.Title != nil {
		task.Title = strings.TrimSpace(*data.Title)
	}
	if data.Description != nil {
		task.Description = *data.Description
	}
	if data.Completed != nil {
		task.Completed = *data.Completed
	}
	t.f.now = t.f.now.Add(time.Second)
	task.UpdatedAt = t.f.now
	t.f.tasks[id] = task
	return task, nil
}

func (t *fakeTasks) Remove(ctx context.Context, userID, id int64) error {
	t.f.record("remove")
	if t.f.RemoveErr != nil {
		return t.f.RemoveErr
	}
	if err := t.authorize(userID); err != nil {
		return err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if _, err := t.f.owned(userID, id); err != nil {
		return err
	}
	delete(t.f.tasks, id)
	return nil
}

func (t *fakeTasks) Toggle(ctx context.Context, userID, id int64) (service.Task, error) {
	t.f.record("toggle")
	if t.f.ToggleErr != nil {
		return service.Task{}, t.f.ToggleErr
	}
	if err := t.authorize(userID); err != nil {
		return service.Task{}, err
	}
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	task, err := t.f.owned(userID, id)
	if err != nil {
		return service.Task{}, err
	}
	task.Completed = !task.Completed
	t.f.now = t.f.now.Add(time.Second)
	task.UpdatedAt = t.f.now
	t.f.tasks[id] = task
	return task, nil
}

func (f *FakeBackend) owned(userID, id int64) (service.Task, error) {
	task, ok := f.tasks[id]
	if !ok || task.UserID != userID {
		return service.Task{}, &service.RemoteError{Code: 404, Message: "Task not found"}
	}
	return task, nil
}

// ErrUnreachable simulates a transport failure.
var ErrUnreachable = errors.New("dial tcp: connection refused")
