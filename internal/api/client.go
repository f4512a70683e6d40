// Package api talks to the todo backend. It keeps the session cookies in a
// jar, echoes the anti-CSRF cookie back as a header on mutating requests and
// maps every failure to a *RequestError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

const (
	pathMe     = "/api/user/me"
	pathLogout = "/api/logout"
	pathTodos  = "/api/todos"

	authorizePrefix = "/oauth2/authorization/"

	headerRequestID = "X-Request-ID"
)

// Options configure a Client. Zero values pick the backend's defaults.
type Options struct {
	BaseURL    string
	CSRFCookie string
	CSRFHeader string
	// Timeout bounds a whole request. Zero leaves it to the transport.
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client is the backend API client. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	http       *http.Client
	csrfCookie string
	csrfHeader string
	log        *zap.Logger
}

// New builds a Client with an empty cookie jar.
func New(opt Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opt.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", opt.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   opt.Timeout,
			Transport: opt.Transport,
			// Redirects to a login page mean the session is gone; surface
			// the 3xx instead of following it into HTML.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		csrfCookie: opt.CSRFCookie,
		csrfHeader: opt.CSRFHeader,
		log:        opt.Logger,
	}
	if c.csrfCookie == "" {
		c.csrfCookie = "XSRF-TOKEN"
	}
	if c.csrfHeader == "" {
		c.csrfHeader = "X-XSRF-TOKEN"
	}
	c.log = logging.OrNop(c.log)
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.base.String() }

// AuthorizationURL is where the browser goes to start an OAuth login.
func (c *Client) AuthorizationURL(provider string) string {
	return c.endpoint(authorizePrefix + url.PathEscape(provider))
}

// Cookies returns the cookies the jar would send to the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// SetCookies seeds the jar, e.g. from persisted credentials.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.http.Jar.SetCookies(c.base, cookies)
}

// Cookie returns the named cookie value, or "".
func (c *Client) Cookie(name string) string {
	for _, ck := range c.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// ProbeSession asks who the current session belongs to. An anonymous
// visitor (401/403) yields nil, nil.
func (c *Client) ProbeSession(ctx context.Context) (*model.UserProfile, error) {
	var u model.UserProfile
	err := c.do(ctx, http.MethodGet, pathMe, nil, &u)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.log.Debug("no session", zap.Int("status", StatusOf(err)))
			return nil, nil
		}
		return nil, err
	}
	if u == nil {
		// a null principal is no session
		return nil, nil
	}
	return &u, nil
}

// RevokeSession logs the session out on the backend.
func (c *Client) RevokeSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, pathTodos, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

func (c *Client) CreateTodo(ctx context.Context, d model.Draft) (model.Todo, error) {
	var t model.Todo
	err := c.do(ctx, http.MethodPost, pathTodos, d, &t)
	return t, err
}

// UpdateTodo replaces the whole record; the backend does not patch.
func (c *Client) UpdateTodo(ctx context.Context, id model.ID, d model.Draft) (model.Todo, error) {
	var t model.Todo
	err := c.do(ctx, http.MethodPut, todoPath(id), d, &t)
	return t, err
}

func (c *Client) DeleteTodo(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

func todoPath(id model.ID) string {
	return pathTodos + "/" + url.PathEscape(id.String())
}

// endpoint joins the base URL and an already-escaped path.
func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.base.String(), "/") + path
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &RequestError{Method: method, Path: path, Message: "encode body: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return &RequestError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rid := uuid.NewString()
	req.Header.Set(headerRequestID, rid)
	if isMutating(method) {
		if tok := c.Cookie(c.csrfCookie); tok != "" {
			req.Header.Set(c.csrfHeader, tok)
		}
	}

	log := c.log.With(zap.String("method", method), zap.String("path", path), zap.String("request_id", rid))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return &RequestError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Message: "read body: " + err.Error(), Err: err}
	}
	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Message: "decode body: " + err.Error(), Err: err}
	}
	return nil
}

// errorMessage prefers the backend's own message over a generic one.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("request failed with status code %d", status)
}
