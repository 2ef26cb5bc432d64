package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"taskgate/internal/service"
)

// ServerSecret signs the fake server's tokens.
const ServerSecret = "test-secret"

// Server is a fake of the remote REST API backed by a FakeBackend for
// storage. Tokens are HS256 JWTs carrying a user_id claim.
type Server struct {
	*httptest.Server

	Backend *FakeBackend

	mu       sync.Mutex
	requests []*http.Request
}

// NewServer starts a fake API server that is closed with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{Backend: NewFakeBackend()}

	r := chi.NewRouter()
	r.Use(s.capture)
	r.Post("/login", s.login)
	r.Post("/register", s.register)
	r.Get("/user", s.authed(s.user))
	r.Route("/api/{userID}/tasks", func(r chi.Router) {
		r.Get("/", s.authed(s.list))
		r.Post("/", s.authed(s.create))
		r.Put("/{id}", s.authed(s.update))
		r.Delete("/{id}", s.authed(s.remove))
		r.Patch("/{id}/complete", s.authed(s.toggle))
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// IssueToken signs a token for userID expiring after ttl.
func IssueToken(userID int64, ttl time.Duration) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	signed, err := tok.SignedString([]byte(ServerSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(ServerSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		id, _ := claims["user_id"].(float64)
		if id <= 0 {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if p := chi.URLParam(r, "userID"); p != "" && p != strconv.FormatInt(int64(id), 10) {
			writeDetail(w, http.StatusUnauthorized, "Not authorized to access these tasks")
			return
		}
		h(w, r, int64(id))
	}
}

type userJSON struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginJSON struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userJSON `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	sess, err := s.Backend.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.loginResponse(sess.User))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	sess, err := s.Backend.SignUpWithPassword(r.Context(), service.SignUpRequest{
		Email: req.Email, Name: req.Name, Password: req.Password,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if sess == nil {
		writeDetail(w, http.StatusInternalServerError, "no session")
		return
	}
	writeJSON(w, http.StatusOK, s.loginResponse(sess.User))
}

func (s *Server) loginResponse(u service.User) loginJSON {
	return loginJSON{
		AccessToken: IssueToken(u.ID, 7*24*time.Hour),
		TokenType:   "bearer",
		User:        userJSON{ID: u.ID, Email: u.Email, Name: u.Name},
	}
}

func (s *Server) user(w http.ResponseWriter, r *http.Request, userID int64) {
	s.Backend.mu.Lock()
	defer s.Backend.mu.Unlock()
	for _, u := range s.Backend.users {
		if u.user.ID == userID {
			writeJSON(w, http.StatusOK, userJSON{ID: u.user.ID, Email: u.user.Email, Name: u.user.Name})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, userID int64) {
	tasks, err := s.Backend.Tasks(nil).List(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, userID int64) {
	var data service.CreateTaskData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	task, err := s.Backend.Tasks(nil).Create(r.Context(), userID, data)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var data service.UpdateTaskData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	task, err := s.Backend.Tasks(nil).Update(r.Context(), userID, id, data)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.Backend.Tasks(nil).Remove(r.Context(), userID, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := s.Backend.Tasks(nil).Toggle(r.Context(), userID, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task id")
		return 0, false
	}
	return id, true
}

func writeErr(w http.ResponseWriter, err error) {
	if re, ok := err.(*service.RemoteError); ok {
		writeDetail(w, re.Code, re.Message)
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
