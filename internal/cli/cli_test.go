package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/api/apitest"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
)

type result struct {
	code     int
	out, err string
}

type fixture struct {
	srv    *apitest.Server
	home   string
	stdin  string
	opened []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{srv: apitest.New(t), home: t.TempDir()}
	t.Setenv("HOME", fx.home)
	t.Setenv(session.EnvSession, "")
	t.Setenv("TADA_BASE_URL", fx.srv.URL)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(fx.home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return fx
}

func (fx *fixture) run(args ...string) result {
	var out, errOut bytes.Buffer
	env := Env{
		In:  strings.NewReader(fx.stdin),
		Out: &out,
		Err: &errOut,
		Open: func(u string) error {
			fx.opened = append(fx.opened, u)
			return nil
		},
	}
	code := Run(context.Background(), append([]string{"--theme", "mono"}, args...), env)
	return result{code: code, out: out.String(), err: errOut.String()}
}

// loggedIn stores credentials for a fresh backend session.
func (fx *fixture) loggedIn(t *testing.T) {
	t.Helper()
	sid := fx.srv.Login(model.UserProfile{"name": "Ada", "email": "ada@example.com", "provider": "google"})
	require.NoError(t, session.SaveCredentials([]*http.Cookie{{Name: apitest.SessionCookie, Value: sid}}))
}

func (fx *fixture) credsPath() string {
	return filepath.Join(fx.home, ".tada", "credentials.json")
}

func TestLoginWithSessionFlag(t *testing.T) {
	fx := newFixture(t)
	sid := fx.srv.Login(model.UserProfile{"name": "Ada"})

	r := fx.run("login", "google", "--session", sid)

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "logged in as Ada")
	assert.Empty(t, fx.opened)
	assert.FileExists(t, fx.credsPath())

	r = fx.run("whoami")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Ada")
}

func TestLoginPastedCookie(t *testing.T) {
	fx := newFixture(t)
	sid := fx.srv.Login(model.UserProfile{"name": "Ada"})
	fx.stdin = apitest.SessionCookie + "=" + sid + "; Path=/\n"

	r := fx.run("login", "Microsoft")

	require.Equal(t, ExitOK, r.code, r.err)
	require.Len(t, fx.opened, 1)
	assert.Equal(t, fx.srv.URL+"/oauth2/authorization/microsoft", fx.opened[0])
	assert.Contains(t, r.err, fx.opened[0])
	assert.Contains(t, r.err, "Paste your session cookie")
}

func TestLoginRejectedSession(t *testing.T) {
	fx := newFixture(t)

	r := fx.run("login", "google", "--session", "bogus")

	assert.Equal(t, ExitFailure, r.code)
	assert.Contains(t, r.err, "authentication failed")
	assert.NoFileExists(t, fx.credsPath())
}

func TestLoginCriticalFailure(t *testing.T) {
	fx := newFixture(t)
	fx.srv.Fail(http.MethodGet, "/api/user/me", http.StatusInternalServerError)

	r := fx.run("login", "google", "--session", "whatever")

	assert.Equal(t, ExitFailure, r.code)
	assert.Contains(t, r.err, "500")
}

func TestLoginUnknownProvider(t *testing.T) {
	fx := newFixture(t)

	r := fx.run("login", "myspace")

	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.err, `unknown provider "myspace"`)
	assert.Empty(t, fx.opened)
}

func TestProtectedCommandsNeedSession(t *testing.T) {
	fx := newFixture(t)

	for _, args := range [][]string{{"ls"}, {"whoami"}, {"add", "x"}, {"done", "1"}} {
		r := fx.run(args...)
		assert.Equal(t, ExitUsage, r.code, args)
		assert.Contains(t, r.err, "not logged in", args)
		assert.Contains(t, r.err, "tada login", args)
	}
	assert.Zero(t, fx.srv.Count(http.MethodGet, "/api/todos"))
}

func TestListShowsTodos(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "Buy milk", Description: "2 litres"}, model.Todo{Title: "Ship", Completed: true})

	r := fx.run("ls")

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Welcome, Ada!")
	assert.Contains(t, r.out, " 1. [ ] Buy milk")
	assert.Contains(t, r.out, "2 litres")
	assert.Contains(t, r.out, " 2. [x] Ship")

	r = fx.run("ls", "--group")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Pending")
	assert.Contains(t, r.out, "Done")
}

func TestListEmpty(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)

	r := fx.run("ls")

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "No todos yet. Add one above!")
}

func TestListServerError(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Fail(http.MethodGet, "/api/todos", http.StatusInternalServerError)

	r := fx.run("ls")

	assert.Equal(t, ExitFailure, r.code)
	assert.Contains(t, r.err, "load todos")
}

func TestAdd(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)

	r := fx.run("add", "Buy", "milk", "-d", "2 litres")

	require.Equal(t, ExitOK, r.code, r.err)
	got := fx.srv.Todos()
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Title)
	assert.Equal(t, "2 litres", got[0].Description)
	assert.False(t, got[0].Completed)
}

func TestAddBlankTitleNeverCallsAPI(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)

	r := fx.run("add", "   ")

	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.err, "Title is required.")
	assert.Zero(t, fx.srv.Count(http.MethodPost, "/api/todos"))
}

func TestDoneToggles(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "a"}, model.Todo{Title: "b"})

	r := fx.run("done", "2")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.True(t, fx.srv.Todos()[1].Completed)

	r = fx.run("done", "2")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.False(t, fx.srv.Todos()[1].Completed)
}

func TestIndexErrors(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "only"})

	r := fx.run("rm", "5")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.err, "index out of range: have 1, got 5")
	assert.Contains(t, r.err, "tada ls")

	r = fx.run("rm", "two")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.err, "not a number: two")

	assert.Len(t, fx.srv.Todos(), 1)
}

func TestRemove(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "a"}, model.Todo{Title: "b"})

	r := fx.run("rm", "1")

	require.Equal(t, ExitOK, r.code, r.err)
	got := fx.srv.Todos()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)
}

func TestEditKeepsCompleted(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "old", Description: "keep me", Completed: true})

	r := fx.run("edit", "1", "--title", "new")

	require.Equal(t, ExitOK, r.code, r.err)
	got := fx.srv.Todos()[0]
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "keep me", got.Description)
	assert.True(t, got.Completed)
}

func TestEditValidation(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "old"})

	assert.Equal(t, ExitUsage, fx.run("edit", "1").code)

	r := fx.run("edit", "1", "--title", " ")
	assert.Equal(t, ExitUsage, r.code)
	assert.Zero(t, fx.srv.Count(http.MethodPut, "/api/todos"))
}

func TestShowRendersMarkdown(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Seed(model.Todo{Title: "Plan trip", Description: "- book flights\n- pack"})

	r := fx.run("show", "1")

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Plan trip")
	assert.Contains(t, r.out, "book flights")
	assert.Contains(t, r.out, "pending")
}

func TestLogout(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)

	r := fx.run("logout")

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Equal(t, 1, fx.srv.Count(http.MethodPost, "/api/logout"))
	assert.NoFileExists(t, fx.credsPath())

	assert.Equal(t, ExitUsage, fx.run("ls").code)
}

func TestLogoutFailureKeepsCredentials(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Fail(http.MethodPost, "/api/logout", http.StatusInternalServerError)

	r := fx.run("logout")

	assert.Equal(t, ExitFailure, r.code)
	assert.FileExists(t, fx.credsPath())
}

func TestLogoutWhenServerUnreachableKeepsCredentials(t *testing.T) {
	fx := newFixture(t)
	fx.loggedIn(t)
	fx.srv.Fail(http.MethodGet, "/api/user/me", http.StatusInternalServerError)

	r := fx.run("logout")

	assert.Equal(t, ExitFailure, r.code)
	assert.NotContains(t, r.out, "logged out")
	assert.Contains(t, r.err, "500")
	assert.Zero(t, fx.srv.Count(http.MethodPost, "/api/logout"))
	assert.FileExists(t, fx.credsPath())
}

func TestLogoutWithExpiredSessionForgetsCredentials(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, session.SaveCredentials([]*http.Cookie{{Name: apitest.SessionCookie, Value: "expired"}}))

	r := fx.run("logout")

	require.Equal(t, ExitOK, r.code, r.err)
	assert.Zero(t, fx.srv.Count(http.MethodPost, "/api/logout"))
	assert.NoFileExists(t, fx.credsPath())
}

func TestSessionFromEnv(t *testing.T) {
	fx := newFixture(t)
	sid := fx.srv.Login(model.UserProfile{"preferred_username": "ada"})
	t.Setenv(session.EnvSession, sid)

	r := fx.run("whoami")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "ada")
	// env sessions are never written to disk
	assert.NoFileExists(t, fx.credsPath())
}

func TestStatus(t *testing.T) {
	fx := newFixture(t)

	r := fx.run("status")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "not logged in")
	assert.Contains(t, r.out, "credentials: (none)")

	fx.loggedIn(t)
	r = fx.run("status")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "logged in as Ada")
	assert.Contains(t, r.out, "credentials: file")
}

func TestProviders(t *testing.T) {
	fx := newFixture(t)

	r := fx.run("providers")

	require.Equal(t, ExitOK, r.code, r.err)
	for _, p := range []string{"google", "facebook", "microsoft"} {
		assert.Contains(t, r.out, fx.srv.URL+"/oauth2/authorization/"+p)
	}
}

func TestUsageErrors(t *testing.T) {
	fx := newFixture(t)

	assert.Equal(t, ExitUsage, fx.run("frobnicate").code)
	assert.Equal(t, ExitUsage, fx.run("login").code)
	assert.Equal(t, ExitUsage, fx.run("ls", "--bogus").code)
}

func TestConfigFileErrors(t *testing.T) {
	fx := newFixture(t)
	bad := filepath.Join(fx.home, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("base_url: not-a-url\n"), 0o600))
	t.Setenv("TADA_BASE_URL", "")

	r := fx.run("--config", bad, "providers")

	assert.Equal(t, ExitFailure, r.code)
	assert.Contains(t, r.err, "base_url")
}
