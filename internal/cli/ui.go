package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todos"
	"github.com/Makepad-fr/tada/internal/tui"
)

func newUICmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive interface",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()

			// The TUI owns navigation; rebuild the manager around its navigator.
			tn := tui.NewNavigator(env.Open)
			defer tn.Stop()
			mgr := session.NewManager(a.client, tn,
				session.WithProviders(a.cfg.Providers...),
				session.WithLoginRoute(a.cfg.Routes.Login),
				session.WithLogger(a.log.Named("session")),
			)
			a.session = mgr
			cancel := mgr.Subscribe(func(s session.Snapshot) {
				if s.IsAuthenticated() {
					a.persist()
				}
			})
			defer cancel()

			m := tui.New(tui.Options{
				Context:   cmd.Context(),
				Session:   mgr,
				Navigator: tn,
				NewStore: func() *todos.Store {
					return todos.NewStore(a.client, mgr, todos.WithLogger(a.log.Named("todos")))
				},
				Routes:     a.routes,
				Providers:  a.cfg.Providers,
				CookieName: a.cfg.Cookies.Session,
				AdoptSession: func(value string) error {
					a.adopt(value)
					return nil
				},
				ForgetSession: func() error {
					if a.fromEnv() {
						return nil
					}
					return session.DeleteCredentials()
				},
				Logger: a.log.Named("tui"),
			})

			p := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(env.In),
				tea.WithOutput(env.Out),
			)
			if _, err := p.Run(); err != nil {
				a.log.Error("tui", zap.Error(err))
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}
}
