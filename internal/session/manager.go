// Package session owns the authenticated-user value. It probes the backend
// on activation, starts OAuth logins, revokes sessions and re-checks after
// the OAuth callback.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

// ErrUnknownProvider is returned by Login for a provider not configured.
var ErrUnknownProvider = errors.New("unknown login provider")

// State is the coarse session lifecycle.
type State int

const (
	Unknown State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// API is the slice of the backend client the manager needs.
type API interface {
	ProbeSession(ctx context.Context) (*model.UserProfile, error)
	RevokeSession(ctx context.Context) error
	AuthorizationURL(provider string) string
}

// Navigator performs a navigation effect: an absolute URL for the OAuth
// provider, or a client route such as the login surface.
type Navigator interface {
	Navigate(target string) error
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	User    *model.UserProfile
	Loading bool
	// Resolved is false until the first probe finishes.
	Resolved bool
}

func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

func (s Snapshot) State() State {
	switch {
	case s.Loading && !s.Resolved:
		return Unknown
	case s.User != nil:
		return Authenticated
	default:
		return Anonymous
	}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.log = logging.OrNop(l)
	}
}

// WithProviders restricts Login to the given provider ids.
func WithProviders(ids ...string) Option {
	return func(m *Manager) { m.providers = ids }
}

// WithLoginRoute sets where Logout navigates on success.
func WithLoginRoute(route string) Option {
	return func(m *Manager) { m.loginRoute = route }
}

// Manager is safe for concurrent use. Listeners run synchronously after
// each state change, outside the lock.
type Manager struct {
	api        API
	nav        Navigator
	log        *zap.Logger
	providers  []string
	loginRoute string

	mu       sync.RWMutex
	user     *model.UserProfile
	loading  bool
	resolved bool
	nextSub  int
	subs     map[int]func(Snapshot)
}

// NewManager returns a manager in the Unknown (loading) state.
func NewManager(api API, nav Navigator, opts ...Option) *Manager {
	m := &Manager{
		api:        api,
		nav:        nav,
		log:        logging.OrNop(nil),
		loginRoute: "/login",
		loading:    true,
		subs:       map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{User: m.user, Loading: m.loading, Resolved: m.resolved}
}

func (m *Manager) State() State         { return m.Snapshot().State() }
func (m *Manager) IsAuthenticated() bool { return m.Snapshot().IsAuthenticated() }

// Subscribe registers fn for state changes and returns a cancel func.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// set applies fn under the lock, then notifies listeners.
func (m *Manager) set(fn func()) {
	m.mu.Lock()
	fn()
	snap := m.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()
	for _, s := range subs {
		s(snap)
	}
}

// Activate runs the first session probe. Failures leave the session
// anonymous and are only logged.
func (m *Manager) Activate(ctx context.Context) {
	m.set(func() { m.loading = true })
	u, err := m.api.ProbeSession(ctx)
	if err != nil {
		m.log.Error("failed to fetch current user", zap.Error(err))
		u = nil
	}
	m.set(func() {
		m.user = u
		m.loading = false
		m.resolved = true
	})
}

// Login sends the user to the provider's authorization endpoint. The
// server-side redirect flow completes the cycle, so no state changes here.
func (m *Manager) Login(provider string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" || !m.knows(provider) {
		return ErrUnknownProvider
	}
	return m.nav.Navigate(m.api.AuthorizationURL(strings.ToLower(provider)))
}

func (m *Manager) knows(provider string) bool {
	if len(m.providers) == 0 {
		return true
	}
	for _, p := range m.providers {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

// Logout revokes the session. Only a successful revoke clears the user and
// navigates to the login route; on failure the local session stays as is.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.api.RevokeSession(ctx); err != nil {
		m.log.Error("logout failed", zap.Error(err))
		return err
	}
	m.set(func() { m.user = nil })
	if err := m.nav.Navigate(m.loginRoute); err != nil {
		m.log.Warn("navigate after logout", zap.Error(err))
	}
	return nil
}

// Recheck re-probes the session, typically right after the OAuth callback.
// The user is cleared when the probe fails; the error is returned so the
// caller can tell a failed check from an anonymous result.
func (m *Manager) Recheck(ctx context.Context) (*model.UserProfile, error) {
	m.set(func() { m.loading = true })
	u, err := m.api.ProbeSession(ctx)
	if err != nil {
		m.log.Error("session re-check failed", zap.Error(err))
		u = nil
	}
	m.set(func() {
		m.user = u
		m.loading = false
		m.resolved = true
	})
	return u, err
}
