// Package todos holds the local mirror of the user's todo collection.
//
// The collection is never computed client-side: every mutation applies the
// server's response, and Fetch replaces everything. Operations start in
// call order but apply in completion order, so when two updates to the same
// todo race, the last response to arrive wins.
package todos

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

// ErrTitleRequired is reported before any request when the title is blank.
var ErrTitleRequired = errors.New("title is required")

// ValidateDraft trims the title and rejects an empty one.
func ValidateDraft(d model.Draft) (model.Draft, error) {
	d = d.Normalize()
	if d.Title == "" {
		return d, ErrTitleRequired
	}
	return d, nil
}

// API is the slice of the backend client the store needs.
type API interface {
	ListTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, d model.Draft) (model.Todo, error)
	UpdateTodo(ctx context.Context, id model.ID, d model.Draft) (model.Todo, error)
	DeleteTodo(ctx context.Context, id model.ID) error
}

// Authenticator reports whether a session is active.
type Authenticator interface {
	IsAuthenticated() bool
}

// Snapshot is a copy of the store state.
type Snapshot struct {
	Todos   []model.Todo
	Loading bool
	Error   string
}

// Option customizes a Store.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = logging.OrNop(l)
	}
}

// Store owns the collection. It is safe for concurrent use; the lock guards
// state only and is never held across a request.
type Store struct {
	api  API
	auth Authenticator
	log  *zap.Logger

	mu       sync.Mutex
	todos    []model.Todo
	loading  bool
	err      string
	detached bool
	nextSub  int
	subs     map[int]func(Snapshot)
}

func NewStore(api API, auth Authenticator, opts ...Option) *Store {
	s := &Store{
		api:   api,
		auth:  auth,
		log:   logging.OrNop(nil),
		todos: []model.Todo{},
		subs:  map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Todos: slices.Clone(s.todos), Loading: s.loading, Error: s.err}
}

// Get looks up a todo by id in the local collection.
func (s *Store) Get(id model.ID) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.todos[i], true
	}
	return model.Todo{}, false
}

func (s *Store) indexLocked(id model.ID) int {
	return slices.IndexFunc(s.todos, func(t model.Todo) bool { return t.ID == id })
}

// Subscribe registers fn for state changes and returns a cancel func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Detach stops applying responses. Calls already in flight still finish on
// the server, but their results are dropped. Used when the view that owns
// the store goes away.
func (s *Store) Detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// apply mutates state under the lock and notifies listeners. It reports
// false when the store is detached and nothing was applied.
func (s *Store) apply(fn func()) bool {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return false
	}
	fn()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()
	for _, f := range subs {
		f(snap)
	}
	return true
}

// Fetch reloads the whole collection. While anonymous it empties the
// collection without a request. A failure empties the collection too, so
// stale data is never shown; the error is kept in the snapshot and returned.
func (s *Store) Fetch(ctx context.Context) error {
	if s.auth == nil || !s.auth.IsAuthenticated() {
		s.apply(func() { s.todos = []model.Todo{} })
		return nil
	}
	s.apply(func() {
		s.loading = true
		s.err = ""
	})
	list, err := s.api.ListTodos(ctx)
	if err != nil {
		s.log.Error("failed to fetch todos", zap.Error(err))
		s.apply(func() {
			s.err = errText(err, "Failed to fetch todos")
			s.todos = []model.Todo{}
			s.loading = false
		})
		return err
	}
	s.apply(func() {
		s.todos = dedupe(list)
		s.err = ""
		s.loading = false
	})
	return nil
}

// Add creates d on the server and appends the returned record.
func (s *Store) Add(ctx context.Context, d model.Draft) (model.Todo, error) {
	s.apply(func() { s.loading = true })
	t, err := s.api.CreateTodo(ctx, d)
	if err != nil {
		s.fail("failed to add todo", "Failed to add todo", err)
		return model.Todo{}, err
	}
	s.apply(func() {
		if i := s.indexLocked(t.ID); i >= 0 {
			s.todos[i] = t
		} else {
			s.todos = append(s.todos, t)
		}
		s.err = ""
		s.loading = false
	})
	return t, nil
}

// Update replaces the record at id with d and swaps the response in place.
func (s *Store) Update(ctx context.Context, id model.ID, d model.Draft) (model.Todo, error) {
	s.apply(func() { s.loading = true })
	t, err := s.api.UpdateTodo(ctx, id, d)
	if err != nil {
		s.fail("failed to update todo", "Failed to update todo", err)
		return model.Todo{}, err
	}
	s.apply(func() {
		if i := s.indexLocked(id); i >= 0 {
			s.todos[i] = t
		}
		s.err = ""
		s.loading = false
	})
	return t, nil
}

// Remove deletes id on the server, then drops it locally.
func (s *Store) Remove(ctx context.Context, id model.ID) error {
	s.apply(func() { s.loading = true })
	if err := s.api.DeleteTodo(ctx, id); err != nil {
		s.fail("failed to delete todo", "Failed to delete todo", err)
		return err
	}
	s.apply(func() {
		s.todos = slices.DeleteFunc(s.todos, func(t model.Todo) bool { return t.ID == id })
		s.err = ""
		s.loading = false
	})
	return nil
}

// ToggleComplete flips completion. The backend only does full replaces, so
// the current title and description come from the local copy; an id that
// is no longer held locally is ignored.
func (s *Store) ToggleComplete(ctx context.Context, id model.ID, current bool) error {
	t, ok := s.Get(id)
	if !ok {
		return nil
	}
	d := model.DraftOf(t)
	d.Completed = !current
	_, err := s.Update(ctx, id, d)
	return err
}

func (s *Store) fail(logMsg, fallback string, err error) {
	s.log.Error(logMsg, zap.Error(err))
	s.apply(func() {
		s.err = errText(err, fallback)
		s.loading = false
	})
}

func errText(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// dedupe keeps the first occurrence of each id.
func dedupe(list []model.Todo) []model.Todo {
	seen := make(map[model.ID]struct{}, len(list))
	out := make([]model.Todo, 0, len(list))
	for _, t := range list {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
