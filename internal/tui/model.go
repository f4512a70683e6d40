// Package tui is the interactive front end. Screens follow the route table
// in package nav; every call into the session manager or the todo store
// runs as a tea.Cmd so the event loop never blocks on the network.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/nav"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todos"
)

// Options wire the model to the services.
type Options struct {
	Context   context.Context
	Session   *session.Manager
	Navigator *Navigator
	// NewStore builds a fresh store each time the todo screen mounts.
	NewStore  func() *todos.Store
	Routes    nav.Routes
	Providers []string
	// CookieName is shown in the paste prompt.
	CookieName string
	// AdoptSession installs a pasted session cookie value.
	AdoptSession func(value string) error
	// ForgetSession drops persisted credentials after a logout.
	ForgetSession func() error
	Logger        *zap.Logger
	// Start is the initial route; defaults to Routes.Home.
	Start string
}

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenCallback
	screenTodos
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

// Messages produced by commands.
type (
	sessionResolvedMsg struct{}
	sessionChangedMsg  struct{}
	callbackDoneMsg    struct {
		outcome nav.CallbackOutcome
		err     error
	}
	storeMsg struct {
		store *todos.Store
		op    string
		err   error
	}
	logoutDoneMsg struct{ err error }
	adoptedMsg    struct{ err error }
)

type Model struct {
	opt Options
	ctx context.Context
	log *zap.Logger

	route  string
	screen screen

	spinner spinner.Model
	width   int
	height  int

	// login screen
	loginErr   string
	provCursor int
	pasting    bool
	authURL    string
	cookieIn   textinput.Model
	loginNote  string

	// todo screen
	store    *todos.Store
	list     list.Model
	mode     mode
	titleIn  textinput.Model
	descIn   textarea.Model
	descFoc  bool
	formErr  string
	editID   string
	deleteID string
	status   string
}

// New builds the root model.
func New(opt Options) Model {
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	opt.Logger = logging.OrNop(opt.Logger)
	if opt.Start == "" {
		opt.Start = opt.Routes.Home
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	ci := textinput.New()
	ci.Prompt = "> "
	ci.Placeholder = "paste the " + opt.CookieName + " cookie value..."
	ci.EchoMode = textinput.EchoPassword
	ci.CharLimit = 4096

	ti := textinput.New()
	ti.Prompt = "Title: "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Add more details..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = todoKeys
	l.AdditionalFullHelpKeys = todoKeys

	return Model{
		opt:      opt,
		ctx:      opt.Context,
		log:      opt.Logger,
		route:    opt.Start,
		spinner:  sp,
		cookieIn: ci,
		titleIn:  ti,
		descIn:   ta,
		list:     l,
		width:    80,
		height:   24,
	}
}

func todoKeys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	}
}

// Init starts the session probe and the navigation listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.activate(), m.opt.Navigator.wait(), m.watchSession())
}

func (m Model) activate() tea.Cmd {
	return func() tea.Msg {
		m.opt.Session.Activate(m.ctx)
		return sessionResolvedMsg{}
	}
}

// watchSession forwards session changes through the navigator's queue so
// guards re-run, e.g. when a logout clears the user.
func (m Model) watchSession() tea.Cmd {
	return func() tea.Msg {
		m.opt.Session.Subscribe(func(session.Snapshot) {
			m.opt.Navigator.post(sessionChangedMsg{})
		})
		return nil
	}
}

// goTo resolves target through the guards and enters the resulting screen.
func (m Model) goTo(target string) (Model, tea.Cmd) {
	snap := m.opt.Session.Snapshot()
	for hops := 0; hops < 4; hops++ {
		d := m.opt.Routes.Resolve(target, snap)
		switch d.Kind {
		case nav.Wait:
			m.route = target
			return m.enter(screenLoading, target)
		case nav.Redirect:
			target = d.Target
		default:
			m.route = target
			return m.enter(m.screenFor(target), target)
		}
	}
	m.log.Warn("redirect loop", zap.String("target", target))
	return m, nil
}

func (m Model) screenFor(target string) screen {
	switch nav.Path(target) {
	case m.opt.Routes.Callback:
		return screenCallback
	case m.opt.Routes.Login:
		return screenLogin
	default:
		return screenTodos
	}
}

// enter switches screens, mounting and unmounting per-screen state.
func (m Model) enter(s screen, target string) (Model, tea.Cmd) {
	if m.screen == screenTodos && s != screenTodos && m.store != nil {
		m.store.Detach()
		m.store = nil
		m.list.SetItems(nil)
		m.mode = modeBrowse
	}
	prev := m.screen
	m.screen = s

	switch s {
	case screenLogin:
		m.loginErr = loginErrorText(nav.LoginError(target))
		if prev != screenLogin {
			m.pasting = false
			m.cookieIn.Blur()
		}
		return m, nil
	case screenCallback:
		return m, m.handleCallback()
	case screenTodos:
		if prev == screenTodos && m.store != nil {
			return m, nil
		}
		m.store = m.opt.NewStore()
		m.status = ""
		return m, m.storeOp("fetch", func(s *todos.Store) error { return s.Fetch(m.ctx) })
	}
	return m, nil
}

func loginErrorText(marker string) string {
	switch marker {
	case nav.MarkerAuthFailed:
		return "Authentication failed. Please try again."
	case nav.MarkerCritical:
		return "Something went wrong while checking your session."
	case "":
		return ""
	default:
		return "Login error: " + marker
	}
}

func (m Model) handleCallback() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.opt.Routes.HandleCallback(m.ctx, m.opt.Session, m.opt.Navigator)
		return callbackDoneMsg{outcome: outcome, err: err}
	}
}

// storeOp runs fn against the current store and reports back.
func (m Model) storeOp(op string, fn func(*todos.Store) error) tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		return storeMsg{store: s, op: op, err: fn(s)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionResolvedMsg:
		return m.goTo(m.route)

	case sessionChangedMsg:
		next := m.opt.Navigator.wait()
		if m.screen == screenCallback {
			return m, next
		}
		m2, cmd := m.goTo(m.route)
		return m2, tea.Batch(cmd, next)

	case routeMsg:
		m2, cmd := m.goTo(msg.target)
		return m2, tea.Batch(cmd, m.opt.Navigator.wait())

	case externalMsg:
		m.authURL = msg.url
		if msg.err != nil {
			m.loginNote = "Could not open a browser. Open this URL yourself:"
		} else {
			m.loginNote = "Your browser was opened. If not, visit:"
		}
		m.pasting = true
		focus := m.cookieIn.Focus()
		return m, tea.Batch(focus, m.opt.Navigator.wait())

	case callbackDoneMsg:
		if msg.err != nil {
			m.log.Error("auth callback", zap.Stringer("outcome", msg.outcome), zap.Error(msg.err))
		}
		return m, nil

	case adoptedMsg:
		if msg.err != nil {
			m.loginErr = "Could not save session: " + msg.err.Error()
			return m, nil
		}
		return m.goTo(m.opt.Routes.Callback)

	case logoutDoneMsg:
		if msg.err == nil && m.opt.ForgetSession != nil {
			if err := m.opt.ForgetSession(); err != nil {
				m.log.Warn("forget credentials", zap.Error(err))
			}
		}
		return m, nil

	case storeMsg:
		if msg.store != m.store {
			return m, nil
		}
		return m.applyStore(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenTodos:
			return m.updateTodos(msg)
		default:
			if msg.String() == "q" || msg.String() == "esc" {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) resize() {
	listHeight := m.height - 6
	if m.mode == modeAdd || m.mode == modeEdit {
		listHeight = m.height - 12
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)
	m.descIn.SetWidth(m.width - 10)
	m.titleIn.Width = m.width - 16
}

// Route reports the current client route.
func (m Model) Route() string { return m.route }
