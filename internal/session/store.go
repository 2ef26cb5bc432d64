package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"taskgate/internal/service"
	"taskgate/internal/storage"
)

// Store is the session state machine. It is the only reader and writer of
// the durable token entry.
type Store struct {
	auth    service.AuthService
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time

	bootstrap sync.Once

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
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

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store in StatusResolving.
func New(auth service.AuthService, store storage.Storage, opts ...Option) *Store {
	s := &Store{
		auth:      auth,
		storage:   store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		state:     State{Status: StatusResolving},
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// UserID returns the resolved user id, or 0.
func (s *Store) UserID() int64 {
	return s.State().UserID()
}

// Subscribe registers fn to run after every state transition.
// The returned func removes the listener.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Token implements oauth2.TokenSource for the task transport.
func (s *Store) Token() (*oauth2.Token, error) {
	st := s.State()
	if st.Status != StatusAuthenticated {
		return nil, service.ErrUnauthenticated
	}
	return &oauth2.Token{AccessToken: st.Token, TokenType: "Bearer"}, nil
}

// Bootstrap resolves the session left by a previous run. Only the first call
// does any work. It always leaves the store resolved.
func (s *Store) Bootstrap(ctx context.Context) {
	s.bootstrap.Do(func() {
		user, token := s.restore(ctx)
		if user == nil {
			s.transition(State{Status: StatusUnauthenticated})
			return
		}
		s.transition(State{Status: StatusAuthenticated, User: user, Token: token})
	})
}

func (s *Store) restore(ctx context.Context) (*service.User, string) {
	token, ok, err := s.storage.Get(storage.TokenKey)
	if err != nil {
		s.logger.Warn("failed to read stored token", "error", err)
		return nil, ""
	}
	if !ok || token == "" {
		s.logger.Debug("no stored token")
		return nil, ""
	}

	if s.expired(token) {
		s.logger.Debug("stored token expired")
		if err := s.storage.Remove(storage.TokenKey); err != nil {
			s.logger.Warn("failed to remove expired token", "error", err)
		}
		return nil, ""
	}

	sess, err := s.auth.GetSession(ctx, token)
	if err != nil {
		s.logger.Warn("failed to resolve session", "error", err)
		return nil, ""
	}
	if sess == nil {
		s.logger.Debug("no active session")
		return nil, ""
	}
	if err := sess.User.Validate(); err != nil {
		s.logger.Warn("rejected session", "error", err)
		return nil, ""
	}

	user := sess.User
	return &user, token
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// SignIn checks credentials with the auth collaborator and opens a session.
// On failure the state is left unchanged and the error is returned.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return service.ErrInvalidCredentials
	}

	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return s.establish(sess)
}

// SignUp registers a user and opens a session. If registration does not
// return a session the store signs in with the same credentials.
func (s *Store) SignUp(ctx context.Context, req service.SignUpRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" {
		return service.ErrInvalidCredentials
	}

	sess, err := s.auth.SignUpWithPassword(ctx, req)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	if sess == nil {
		s.logger.Debug("registration returned no session, signing in")
		return s.SignIn(ctx, req.Email, req.Password)
	}
	return s.establish(sess)
}

func (s *Store) establish(sess *service.Session) error {
	if sess == nil || sess.Token == "" {
		return fmt.Errorf("%w: no token", service.ErrMalformedSession)
	}
	if err := sess.User.Validate(); err != nil {
		return err
	}
	if err := s.storage.Set(storage.TokenKey, sess.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	user := sess.User
	s.transition(State{Status: StatusAuthenticated, User: &user, Token: sess.Token})
	return nil
}

// SignOut ends the session. Local state is cleared even if the remote call
// fails; failures are logged only.
func (s *Store) SignOut(ctx context.Context) {
	token := s.State().Token

	if token != "" {
		if err := s.auth.SignOut(ctx, token); err != nil {
			s.logger.Warn("remote sign out failed", "error", err)
		}
	}
	if err := s.storage.Remove(storage.TokenKey); err != nil {
		s.logger.Warn("failed to remove stored token", "error", err)
	}
	s.transition(State{Status: StatusUnauthenticated})
}

func (s *Store) transition(next State) {
	s.mu.Lock()
	prev := s.state.Status
	s.state = next
	fns := make([]func(State), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("session transition", "from", prev, "to", next.Status)

	for _, fn := range fns {
		fn(next.clone())
	}
}
