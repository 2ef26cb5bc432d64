// Package tasks caches the current user's tasks and applies only
// server-confirmed results to the local collection.
package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"taskgate/internal/service"
)

// Op names an operation kind.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpToggle Op = "toggle"
)

// Loading reports which operation kinds have a call in flight.
type Loading struct {
	Fetch  bool
	Create bool
	Update bool
	Delete bool
	Toggle bool
}

// Any reports whether any flag is set.
func (l Loading) Any() bool {
	return l.Fetch || l.Create || l.Update || l.Delete || l.Toggle
}

// Snapshot is a copy of the store's state for rendering.
type Snapshot struct {
	UserID  int64
	Tasks   []service.Task
	Loading Loading
	Err     string
}

// Store holds the task collection for one user at a time.
type Store struct {
	svc    service.TaskService
	logger *slog.Logger

	mu       sync.Mutex
	userID   int64
	epoch    uint64
	tasks    []service.Task
	inflight map[Op]int
	err      string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store with no user.
func New(svc service.TaskService, opts ...Option) *Store {
	s := &Store{
		svc:      svc,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		inflight: make(map[Op]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUser points the store at a user. A changed id clears the collection,
// the error and the loading flags; responses to calls issued for the
// previous user are discarded when they arrive.
func (s *Store) SetUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.userID {
		return
	}
	s.logger.Debug("task store reset", "from", s.userID, "to", id)
	s.userID = id
	s.epoch++
	s.tasks = nil
	s.err = ""
	s.inflight = make(map[Op]int)
}

// UserID returns the current user id.
func (s *Store) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]service.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{
		UserID: s.userID,
		Tasks:  tasks,
		Loading: Loading{
			Fetch:  s.inflight[OpFetch] > 0,
			Create: s.inflight[OpCreate] > 0,
			Update: s.inflight[OpUpdate] > 0,
			Delete: s.inflight[OpDelete] > 0,
			Toggle: s.inflight[OpToggle] > 0,
		},
		Err: s.err,
	}
}

// ticket identifies the user and epoch a call was issued for.
type ticket struct {
	op     Op
	userID int64
	epoch  uint64
}

// begin runs the shared guard clause and marks op in flight.
func (s *Store) begin(op Op) (ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID <= 0 {
		err := fmt.Errorf("cannot %s task: invalid user id: %w", op, service.ErrUnauthenticated)
		s.err = err.Error()
		return ticket{}, err
	}
	s.inflight[op]++
	s.err = ""
	return ticket{op: op, userID: s.userID, epoch: s.epoch}, nil
}

// finish settles a call. apply runs under the lock only if the ticket is
// still current and err is nil. It returns ErrStaleResponse if the user
// changed while the call was in flight.
func (s *Store) finish(t ticket, err error, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.userID != s.userID || t.epoch != s.epoch {
		s.logger.Debug("discarding stale response", "op", t.op, "issued_for", t.userID, "current", s.userID)
		if err != nil {
			return err
		}
		return service.ErrStaleResponse
	}

	if s.inflight[t.op] > 0 {
		s.inflight[t.op]--
	}
	if err != nil {
		s.err = err.Error()
		s.logger.Debug("task operation failed", "op", t.op, "error", err)
		return err
	}
	apply()
	s.err = ""
	return nil
}

// FetchTasks replaces the collection with the remote list. Failures are
// recorded in the error slot only.
func (s *Store) FetchTasks(ctx context.Context) {
	s.mu.Lock()
	if s.userID <= 0 {
		s.tasks = nil
		s.err = "invalid user id provided"
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	t, err := s.begin(OpFetch)
	if err != nil {
		return
	}
	list, err := s.svc.List(ctx, t.userID)
	_ = s.finish(t, err, func() {
		kept := make([]service.Task, 0, len(list))
		for _, task := range list {
			if s.owns(t, task) {
				kept = append(kept, task)
			}
		}
		s.tasks = kept
	})
}

// CreateTask validates data, creates the task remotely and appends the
// server's copy.
func (s *Store) CreateTask(ctx context.Context, data service.CreateTaskData) (service.Task, error) {
	t, err := s.begin(OpCreate)
	if err != nil {
		return service.Task{}, err
	}
	if err := data.Validate(); err != nil {
		return service.Task{}, s.finish(t, err, nil)
	}
	created, err := s.svc.Create(ctx, t.userID, data)
	err = s.finish(t, err, func() {
		if s.owns(t, created) {
			s.tasks = append(s.tasks, created)
		}
	})
	if err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// UpdateTask applies data remotely and replaces the local entry with the
// server's copy.
func (s *Store) UpdateTask(ctx context.Context, id int64, data service.UpdateTaskData) (service.Task, error) {
	t, err := s.begin(OpUpdate)
	if err != nil {
		return service.Task{}, err
	}
	if err := data.Validate(); err != nil {
		return service.Task{}, s.finish(t, err, nil)
	}
	updated, err := s.svc.Update(ctx, t.userID, id, data)
	err = s.finish(t, err, func() { s.replace(t, id, updated) })
	if err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes the task remotely, then locally.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	t, err := s.begin(OpDelete)
	if err != nil {
		return err
	}
	err = s.svc.Remove(ctx, t.userID, id)
	return s.finish(t, err, func() {
		kept := s.tasks[:0:0]
		for _, task := range s.tasks {
			if task.ID != id {
				kept = append(kept, task)
			}
		}
		s.tasks = kept
	})
}

// ToggleTaskCompletion flips completion through the dedicated toggle call
// and replaces the local entry with the server's copy.
func (s *Store) ToggleTaskCompletion(ctx context.Context, id int64) (service.Task, error) {
	t, err := s.begin(OpToggle)
	if err != nil {
		return service.Task{}, err
	}
	toggled, err := s.svc.Toggle(ctx, t.userID, id)
	err = s.finish(t, err, func() { s.replace(t, id, toggled) })
	if err != nil {
		return service.Task{}, err
	}
	return toggled, nil
}

// owns reports whether task belongs to the user t was issued for, and logs
// the tasks it refuses. Must hold mu.
func (s *Store) owns(t ticket, task service.Task) bool {
	if task.UserID == t.userID {
		return true
	}
	s.logger.Warn("dropping task owned by another user", "op", t.op, "task", task.ID, "owner", task.UserID)
	return false
}

// replace swaps the entry with the given id for the server's copy. A copy
// owned by another user leaves the entry untouched. Must hold mu.
func (s *Store) replace(t ticket, id int64, task service.Task) {
	if !s.owns(t, task) {
		return
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = task
			return
		}
	}
}
