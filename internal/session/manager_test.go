package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Makepad-fr/tada/internal/model"
)

type fakeAPI struct {
	mu        sync.Mutex
	user      *model.UserProfile
	probeErr  error
	revokeErr error
	probes    int
	revokes   int
}

func (f *fakeAPI) ProbeSession(context.Context) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.user, f.probeErr
}

func (f *fakeAPI) RevokeSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes++
	return f.revokeErr
}

func (f *fakeAPI) AuthorizationURL(p string) string {
	return "http://backend/oauth2/authorization/" + p
}

type recordingNav struct {
	targets []string
}

func (r *recordingNav) Navigate(target string) error {
	r.targets = append(r.targets, target)
	return nil
}

var ada = &model.UserProfile{"name": "Ada"}

func TestInitialStateIsUnknown(t *testing.T) {
	m := NewManager(&fakeAPI{}, &recordingNav{})
	snap := m.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.User)
	assert.Equal(t, Unknown, m.State())
}

func TestActivate(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		m := NewManager(&fakeAPI{user: ada}, &recordingNav{})
		m.Activate(context.Background())
		assert.Equal(t, Authenticated, m.State())
		assert.False(t, m.Snapshot().Loading)
		assert.True(t, m.IsAuthenticated())
	})

	t.Run("no session", func(t *testing.T) {
		m := NewManager(&fakeAPI{}, &recordingNav{})
		m.Activate(context.Background())
		assert.Equal(t, Anonymous, m.State())
		assert.False(t, m.Snapshot().Loading)
	})

	t.Run("probe error is anonymous", func(t *testing.T) {
		m := NewManager(&fakeAPI{user: ada, probeErr: errors.New("network down")}, &recordingNav{})
		m.Activate(context.Background())
		assert.Equal(t, Anonymous, m.State())
		assert.Nil(t, m.Snapshot().User)
		assert.False(t, m.Snapshot().Loading)
	})
}

func TestLogin(t *testing.T) {
	api := &fakeAPI{}
	nav := &recordingNav{}
	m := NewManager(api, nav, WithProviders("google", "facebook"))

	require.NoError(t, m.Login("Google"))
	assert.Equal(t, []string{"http://backend/oauth2/authorization/google"}, nav.targets)
	assert.Equal(t, Unknown, m.State(), "login must not touch session state")

	assert.ErrorIs(t, m.Login("github"), ErrUnknownProvider)
	assert.ErrorIs(t, m.Login("  "), ErrUnknownProvider)
	assert.Len(t, nav.targets, 1)
}

func TestLogout(t *testing.T) {
	t.Run("success clears user and navigates", func(t *testing.T) {
		api := &fakeAPI{user: ada}
		nav := &recordingNav{}
		m := NewManager(api, nav, WithLoginRoute("/signin"))
		m.Activate(context.Background())

		require.NoError(t, m.Logout(context.Background()))
		assert.Nil(t, m.Snapshot().User)
		assert.Equal(t, []string{"/signin"}, nav.targets)
	})

	t.Run("failure keeps user and does not navigate", func(t *testing.T) {
		api := &fakeAPI{user: ada, revokeErr: errors.New("500")}
		nav := &recordingNav{}
		m := NewManager(api, nav)
		m.Activate(context.Background())

		assert.Error(t, m.Logout(context.Background()))
		assert.Equal(t, ada, m.Snapshot().User)
		assert.Empty(t, nav.targets)
	})
}

func TestRecheck(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, &recordingNav{})
	m.Activate(context.Background())
	require.Equal(t, Anonymous, m.State())

	var seen []Snapshot
	cancel := m.Subscribe(func(s Snapshot) { seen = append(seen, s) })
	defer cancel()

	api.user = ada
	u, err := m.Recheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ada, u)
	assert.Equal(t, Authenticated, m.State())

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading, "recheck re-enters loading")
	assert.False(t, seen[1].Loading)

	api.probeErr = errors.New("boom")
	u, err = m.Recheck(context.Background())
	assert.Error(t, err)
	assert.Nil(t, u)
	assert.Equal(t, Anonymous, m.State())
	assert.False(t, m.Snapshot().Loading)
}

// observed returns a manager whose error-level logs are captured.
func observed(api API) (*Manager, *observer.ObservedLogs) {
	core, logs := observer.New(zap.ErrorLevel)
	return NewManager(api, &recordingNav{}, WithLogger(zap.New(core))), logs
}

// A 401 and a transport failure both end anonymous; only the failure is logged.
func TestProbeAbsenceVersusFailure(t *testing.T) {
	t.Run("activate no session", func(t *testing.T) {
		m, logs := observed(&fakeAPI{})
		m.Activate(context.Background())
		assert.Equal(t, Anonymous, m.State())
		assert.Zero(t, logs.Len())
	})

	t.Run("activate failure", func(t *testing.T) {
		m, logs := observed(&fakeAPI{probeErr: errors.New("network down")})
		m.Activate(context.Background())
		assert.Equal(t, Anonymous, m.State())
		assert.Nil(t, m.Snapshot().User)
		entries := logs.FilterMessage("failed to fetch current user").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "network down", entries[0].ContextMap()["error"])
	})

	t.Run("recheck no session", func(t *testing.T) {
		m, logs := observed(&fakeAPI{})
		u, err := m.Recheck(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, u)
		assert.Zero(t, logs.Len())
	})

	t.Run("recheck failure", func(t *testing.T) {
		m, logs := observed(&fakeAPI{probeErr: errors.New("network down")})
		u, err := m.Recheck(context.Background())
		assert.Error(t, err)
		assert.Nil(t, u)
		assert.Equal(t, 1, logs.FilterMessage("session re-check failed").Len())
	})
}

func TestNilLoggerFallsBackToNop(t *testing.T) {
	m := NewManager(&fakeAPI{probeErr: errors.New("down")}, &recordingNav{}, WithLogger(nil))
	assert.NotPanics(t, func() { m.Activate(context.Background()) })
	assert.Equal(t, Anonymous, m.State())
}

func TestSubscribeCancel(t *testing.T) {
	m := NewManager(&fakeAPI{}, &recordingNav{})
	n := 0
	cancel := m.Subscribe(func(Snapshot) { n++ })
	m.Activate(context.Background())
	cancel()
	m.Activate(context.Background())
	assert.Equal(t, 2, n)
}
