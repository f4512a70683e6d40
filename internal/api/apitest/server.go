// Package apitest runs an in-memory todo backend for tests. It speaks the
// same endpoints, session cookie and CSRF rules as the real server.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	SessionCookie = "JSESSIONID"
	CSRFCookie    = "XSRF-TOKEN"
	CSRFHeader    = "X-XSRF-TOKEN"
)

// Request is what the server saw for one call.
type Request struct {
	Method string
	Path   string
	CSRF   string
}

// Server is a fake backend. Zero or more sessions may be logged in.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]model.UserProfile
	csrf     string
	todos    []model.Todo
	nextID   int
	failures map[string]int
	requests []Request
}

// New starts a server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		sessions: map[string]model.UserProfile{},
		csrf:     "csrf-token-1",
		nextID:   1,
		failures: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Login registers a session for user and returns its cookie value.
func (s *Server) Login(user model.UserProfile) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "sess-" + strconv.Itoa(len(s.sessions)+1)
	s.sessions[id] = user
	return id
}

// CSRFToken is the value the server expects echoed back.
func (s *Server) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrf
}

// Seed appends todos, assigning ids to those without one.
func (s *Server) Seed(todos ...model.Todo) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range todos {
		if todos[i].ID == "" {
			todos[i].ID = s.newID()
		}
		s.todos = append(s.todos, todos[i])
	}
	return todos
}

// Todos returns a copy of the server-side collection.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

// Fail makes every following "METHOD path" call answer with status.
// A zero status clears it.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Requests returns every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls matched method and path prefix.
func (s *Server) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (s *Server) newID() model.ID {
	id := model.ID(strconv.Itoa(s.nextID))
	s.nextID++
	return id
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, CSRF: r.Header.Get(CSRFHeader)})

	if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	user, authed := s.user(r)
	if !authed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if isMutating(r.Method) && !s.csrfOK(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid CSRF token"})
		return
	}

	switch {
	case r.URL.Path == "/api/user/me" && r.Method == http.MethodGet:
		http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: s.csrf, Path: "/"})
		writeJSON(w, http.StatusOK, user)

	case r.URL.Path == "/api/logout" && r.Method == http.MethodPost:
		c, _ := r.Cookie(SessionCookie)
		delete(s.sessions, c.Value)
		w.WriteHeader(http.StatusOK)

	case r.URL.Path == "/api/todos" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, append([]model.Todo{}, s.todos...))

	case r.URL.Path == "/api/todos" && r.Method == http.MethodPost:
		var d model.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		t := model.Todo{ID: s.newID(), Title: d.Title, Description: d.Description, Completed: d.Completed}
		s.todos = append(s.todos, t)
		writeJSON(w, http.StatusCreated, t)

	case strings.HasPrefix(r.URL.Path, "/api/todos/"):
		s.serveTodo(w, r, model.ID(strings.TrimPrefix(r.URL.Path, "/api/todos/")))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) serveTodo(w http.ResponseWriter, r *http.Request, id model.ID) {
	idx := -1
	for i, t := range s.todos {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var d model.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		s.todos[idx] = model.Todo{ID: id, Title: d.Title, Description: d.Description, Completed: d.Completed}
		writeJSON(w, http.StatusOK, s.todos[idx])
	case http.MethodDelete:
		s.todos = append(s.todos[:idx], s.todos[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) user(r *http.Request) (model.UserProfile, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	u, ok := s.sessions[c.Value]
	return u, ok
}

func (s *Server) csrfOK(r *http.Request) bool {
	c, err := r.Cookie(CSRFCookie)
	if err != nil {
		return false
	}
	return c.Value == s.csrf && r.Header.Get(CSRFHeader) == s.csrf
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete || method == http.MethodPatch
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
