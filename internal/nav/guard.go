// Package nav decides where the user may go. Decisions are plain values so
// the act of navigating stays with the caller.
package nav

import (
	"context"
	"net/url"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
)

// Login error markers carried in the login route's query string.
const (
	ErrorParam       = "error"
	MarkerAuthFailed = "auth_failed"
	MarkerCritical   = "auth_critical"
)

// Routes is the client route table.
type Routes struct {
	Home     string
	Login    string
	Callback string
}

// DefaultRoutes mirrors the backend's redirect configuration.
func DefaultRoutes() Routes {
	return Routes{Home: "/", Login: "/login", Callback: "/auth/callback"}
}

// Kind is what a guard allows.
type Kind int

const (
	// Wait: the session is still resolving; show a neutral waiting state.
	Wait Kind = iota
	Allow
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "wait"
	}
}

// Decision is the outcome of a guard. Target is set for Redirect.
type Decision struct {
	Kind   Kind
	Target string
}

// Protect gates the todo view.
func (r Routes) Protect(s session.Snapshot) Decision {
	switch {
	case s.Loading:
		return Decision{Kind: Wait}
	case s.IsAuthenticated():
		return Decision{Kind: Allow}
	default:
		return Decision{Kind: Redirect, Target: r.Login}
	}
}

// LoginPage sends an already-authenticated user home.
func (r Routes) LoginPage(s session.Snapshot) Decision {
	switch {
	case s.Loading:
		return Decision{Kind: Wait}
	case s.IsAuthenticated():
		return Decision{Kind: Redirect, Target: r.Home}
	default:
		return Decision{Kind: Allow}
	}
}

// Resolve applies the route table to target (path plus optional query).
// The callback route is always allowed; unknown paths go home.
func (r Routes) Resolve(target string, s session.Snapshot) Decision {
	switch Path(target) {
	case r.Login:
		return r.LoginPage(s)
	case r.Callback:
		return Decision{Kind: Allow}
	case r.Home:
		return r.Protect(s)
	default:
		return Decision{Kind: Redirect, Target: r.Home}
	}
}

// LoginWithError returns the login route carrying marker.
func (r Routes) LoginWithError(marker string) string {
	return r.Login + "?" + url.Values{ErrorParam: {marker}}.Encode()
}

// LoginError extracts the error marker from a login target, or "".
func LoginError(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Query().Get(ErrorParam)
}

// Path strips the query and fragment from target; "" is the root.
func Path(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "/"
	}
	return target
}

// CallbackOutcome distinguishes the three ways the OAuth callback can end.
type CallbackOutcome int

const (
	Succeeded CallbackOutcome = iota
	// Failed: the re-check resolved but nobody is logged in.
	Failed
	// Critical: the re-check itself failed.
	Critical
)

func (o CallbackOutcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "critical"
	}
}

// Rechecker re-probes the session after the provider redirect.
type Rechecker interface {
	Recheck(ctx context.Context) (*model.UserProfile, error)
}

// Navigator performs the navigation effect.
type Navigator interface {
	Navigate(target string) error
}

// HandleCallback runs on the callback route: it re-checks the session and
// forwards home, to the login route with a failure marker, or to the login
// route with the critical marker. The returned error is the re-check
// failure, if any.
func (r Routes) HandleCallback(ctx context.Context, rc Rechecker, nav Navigator) (CallbackOutcome, error) {
	u, err := rc.Recheck(ctx)
	outcome := Succeeded
	switch {
	case err != nil:
		outcome = Critical
	case u == nil:
		outcome = Failed
	}
	if navErr := nav.Navigate(r.CallbackTarget(outcome)); navErr != nil && err == nil {
		err = navErr
	}
	return outcome, err
}

// CallbackTarget is where HandleCallback would navigate for outcome.
func (r Routes) CallbackTarget(o CallbackOutcome) string {
	switch o {
	case Succeeded:
		return r.Home
	case Failed:
		return r.LoginWithError(MarkerAuthFailed)
	default:
		return r.LoginWithError(MarkerCritical)
	}
}
