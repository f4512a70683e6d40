package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/api/apitest"
	"github.com/Makepad-fr/tada/internal/model"
)

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

// loggedIn returns a client holding a valid session and CSRF cookie.
func loggedIn(t *testing.T, srv *apitest.Server) *Client {
	t.Helper()
	c := newClient(t, srv.URL)
	sid := srv.Login(model.UserProfile{"name": "Ada", "email": "ada@example.com"})
	c.SetCookies([]*http.Cookie{{Name: apitest.SessionCookie, Value: sid}})
	_, err := c.ProbeSession(context.Background())
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestAuthorizationURL(t *testing.T) {
	c := newClient(t, "http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080/oauth2/authorization/google", c.AuthorizationURL("google"))
}

func TestProbeSession(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		srv := apitest.New(t)
		c := loggedIn(t, srv)

		u, err := c.ProbeSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "Ada", u.DisplayName())
		assert.Equal(t, srv.CSRFToken(), c.Cookie(apitest.CSRFCookie))
	})

	t.Run("401 is no session", func(t *testing.T) {
		srv := apitest.New(t)
		c := newClient(t, srv.URL)

		u, err := c.ProbeSession(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("403 is no session", func(t *testing.T) {
		srv := apitest.New(t)
		srv.Fail(http.MethodGet, "/api/user/me", http.StatusForbidden)
		c := newClient(t, srv.URL)

		u, err := c.ProbeSession(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	for name, body := range map[string]string{"null principal": "null", "empty body": ""} {
		t.Run(name+" is no session", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			t.Cleanup(srv.Close)
			c := newClient(t, srv.URL)

			u, err := c.ProbeSession(context.Background())
			assert.NoError(t, err)
			assert.Nil(t, u)
		})
	}

	t.Run("500 propagates", func(t *testing.T) {
		srv := apitest.New(t)
		srv.Fail(http.MethodGet, "/api/user/me", http.StatusInternalServerError)
		c := newClient(t, srv.URL)

		u, err := c.ProbeSession(context.Background())
		assert.Nil(t, u)
		var re *RequestError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusInternalServerError, re.Status)
		assert.Equal(t, "Internal Server Error", re.Message)
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := newClient(t, url)

		u, err := c.ProbeSession(context.Background())
		assert.Nil(t, u)
		var re *RequestError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 0, re.Status)
		assert.NotNil(t, re.Unwrap())
	})
}

func TestCRUD(t *testing.T) {
	srv := apitest.New(t)
	c := loggedIn(t, srv)
	ctx := context.Background()

	created, err := c.CreateTodo(ctx, model.Draft{Title: "Buy milk", Description: "2L"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)

	updated, err := c.UpdateTodo(ctx, created.ID, model.Draft{Title: "Buy oat milk", Description: "2L", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.Completed)

	list, err := c.ListTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{updated}, list)

	require.NoError(t, c.DeleteTodo(ctx, created.ID))
	list, err = c.ListTodos(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestCSRFHeaderOnlyOnMutatingRequests(t *testing.T) {
	srv := apitest.New(t)
	c := loggedIn(t, srv)
	ctx := context.Background()

	_, err := c.ListTodos(ctx)
	require.NoError(t, err)
	_, err = c.CreateTodo(ctx, model.Draft{Title: "x"})
	require.NoError(t, err)

	for _, r := range srv.Requests() {
		switch r.Method {
		case http.MethodGet:
			assert.Empty(t, r.CSRF, "GET %s", r.Path)
		default:
			assert.Equal(t, srv.CSRFToken(), r.CSRF, "%s %s", r.Method, r.Path)
		}
	}
}

func TestMissingCSRFCookieIsNotAnError(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-XSRF-TOKEN")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	require.NoError(t, c.RevokeSession(context.Background()))
	assert.Empty(t, got)
}

func TestRequestErrors(t *testing.T) {
	srv := apitest.New(t)
	c := loggedIn(t, srv)
	ctx := context.Background()

	_, err := c.UpdateTodo(ctx, "999", model.Draft{Title: "x"})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.EqualError(t, err, "PUT /api/todos/999: 404 request failed with status code 404")

	srv.Fail(http.MethodPost, "/api/todos", http.StatusUnauthorized)
	_, err = c.CreateTodo(ctx, model.Draft{Title: "x"})
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestRequestIDHeader(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.ListTodos(context.Background())
	require.NoError(t, err)
	_, err = c.ListTodos(context.Background())
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTodoPathEscapesID(t *testing.T) {
	assert.Equal(t, "/api/todos/a%2Fb", todoPath("a/b"))
}
