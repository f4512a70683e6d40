package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/nav"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todos"
	"github.com/Makepad-fr/tada/internal/ui"
)

// app holds the services one command invocation works with.
type app struct {
	env     Env
	cfg     *config.Config
	log     *zap.Logger
	client  *api.Client
	creds   *session.Credentials
	nav     *navigator
	session *session.Manager
	routes  nav.Routes
}

func bootstrap(env Env, f *flags) (*app, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.theme == "" {
		ui.SetTheme(cfg.Theme)
	}

	logFile := ""
	if !f.verbose {
		if logFile, err = cfg.LogFile(); err != nil {
			return nil, err
		}
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: logFile, Verbose: f.verbose})
	if err != nil {
		return nil, err
	}

	client, err := api.New(api.Options{
		BaseURL:    cfg.BaseURL,
		CSRFCookie: cfg.Cookies.CSRF,
		CSRFHeader: cfg.Cookies.CSRFHeader,
		Timeout:    cfg.Timeout,
		Logger:     log.Named("api"),
	})
	if err != nil {
		return nil, err
	}

	creds, err := session.LoadCredentials(cfg.Cookies.Session)
	if err != nil {
		// a corrupt file should not lock the user out of `tada login`
		log.Warn("load credentials", zap.Error(err))
	}
	client.SetCookies(creds.HTTPCookies())

	a := &app{
		env:    env,
		cfg:    cfg,
		log:    log,
		client: client,
		creds:  creds,
		nav:    &navigator{out: env.Err, open: env.Open},
		routes: nav.Routes{Home: cfg.Routes.Home, Login: cfg.Routes.Login, Callback: cfg.Routes.Callback},
	}
	a.session = session.NewManager(client, a.nav,
		session.WithProviders(cfg.Providers...),
		session.WithLoginRoute(cfg.Routes.Login),
		session.WithLogger(log.Named("session")),
	)
	return a, nil
}

func (a *app) close() { _ = a.log.Sync() }

func (a *app) newStore() *todos.Store {
	return todos.NewStore(a.client, a.session, todos.WithLogger(a.log.Named("todos")))
}

// fromEnv reports whether the session comes from TADA_SESSION.
func (a *app) fromEnv() bool { return a.creds != nil && a.creds.Source == "env" }

// requireSession resolves the session and applies the protected-route guard.
func (a *app) requireSession(ctx context.Context) (*model.UserProfile, error) {
	if _, err := a.session.Recheck(ctx); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if d := a.routes.Protect(a.session.Snapshot()); d.Kind != nav.Allow {
		return nil, errNotLoggedIn
	}
	a.persist()
	return a.session.Snapshot().User, nil
}

// persist stores the jar so rotated cookies survive to the next run.
func (a *app) persist() {
	if a.fromEnv() {
		return
	}
	if err := session.SaveCredentials(a.client.Cookies()); err != nil {
		a.log.Warn("save credentials", zap.Error(err))
	}
}

func (a *app) adopt(value string) {
	a.client.SetCookies([]*http.Cookie{{Name: a.cfg.Cookies.Session, Value: value}})
}

// navigator prints redirects the CLI cannot follow itself. Client routes
// are only recorded.
type navigator struct {
	out  io.Writer
	open func(string) error
	last string
}

func (n *navigator) Navigate(target string) error {
	n.last = target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return nil
	}
	fmt.Fprintln(n.out, "Open this URL to sign in:")
	fmt.Fprintln(n.out, "  "+target)
	if n.open != nil {
		if err := n.open(target); err != nil {
			ui.Hint(n.out, "(could not open a browser: "+err.Error()+")")
		}
	}
	return nil
}
