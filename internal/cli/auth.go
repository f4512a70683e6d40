package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/nav"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newLoginCmd(env Env, f *flags) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Sign in with an OAuth provider",
		Long: `Sign in with an OAuth provider.

tada prints the provider's sign-in URL and tries to open it in your browser.
Once signed in, copy the session cookie from the browser and paste it here,
or pass it with --session.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()
			provider := args[0]

			if !a.cfg.HasProvider(provider) {
				return usagef("unknown provider %q (available: %s)", provider, strings.Join(a.cfg.Providers, ", "))
			}
			if value == "" {
				if err := a.session.Login(provider); err != nil {
					if errors.Is(err, session.ErrUnknownProvider) {
						return usage(err)
					}
					return err
				}
				fmt.Fprintf(env.Err, "Paste your session cookie (%s): ", a.cfg.Cookies.Session)
				line, err := bufio.NewReader(env.In).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read session: %w", err)
				}
				value = line
			}
			value = session.CookieValue(a.cfg.Cookies.Session, value)
			if value == "" {
				return usagef("empty session value")
			}
			a.adopt(value)

			outcome, err := a.routes.HandleCallback(cmd.Context(), a.session, a.nav)
			switch outcome {
			case nav.Succeeded:
				if err := session.SaveCredentials(a.client.Cookies()); err != nil {
					return err
				}
				ui.OK(env.Out, "logged in as "+a.session.Snapshot().User.DisplayName())
				return nil
			case nav.Failed:
				return errors.New("authentication failed: the backend did not accept that session")
			default:
				return fmt.Errorf("authentication failed: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&value, "session", "", "session cookie value (skips the browser step)")
	return cmd
}

func newLogoutCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()

			// an unreachable server must not cost the user their stored session
			if _, err := a.session.Recheck(cmd.Context()); err != nil {
				return fmt.Errorf("logout: check session: %w", err)
			}
			if a.session.IsAuthenticated() {
				if err := a.session.Logout(cmd.Context()); err != nil {
					return fmt.Errorf("logout: %w", err)
				}
			}
			if a.fromEnv() {
				ui.OK(env.Out, "logged out")
				ui.Hint(env.Out, "the session comes from "+session.EnvSession+"; unset it to stop using it")
				return nil
			}
			if err := session.DeleteCredentials(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK(env.Out, "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			t := ui.Current()
			fmt.Fprintln(env.Out, ui.C(t.Title, u.DisplayName()))
			for _, kv := range [][2]string{{"email", u.Email()}, {"provider", u.Provider()}, {"id", u.ID()}} {
				if kv[1] != "" {
					fmt.Fprintf(env.Out, "%s %s\n", ui.C(t.Muted, kv[0]+":"), kv[1])
				}
			}
			return nil
		},
	}
}

func newStatusCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configuration status",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(env.Out, "server: %s\n", a.client.BaseURL())
			source := "(none)"
			if a.creds != nil {
				source = a.creds.Source
			}
			fmt.Fprintf(env.Out, "credentials: %s\n", source)

			u, err := a.session.Recheck(cmd.Context())
			if err != nil {
				a.log.Debug("status probe", zap.Error(err))
				fmt.Fprintf(env.Out, "session: unknown (%v)\n", err)
				return errors.New("could not reach the server")
			}
			if u == nil {
				fmt.Fprintln(env.Out, "session: "+ui.C(ui.Current().Muted, "not logged in"))
				fmt.Fprintln(env.Out, "Run: tada login <provider>")
			} else {
				fmt.Fprintln(env.Out, "session: "+ui.C(ui.Current().Success, "logged in as "+u.DisplayName()))
				a.persist()
			}
			fmt.Fprintln(env.Out, "env override: "+session.EnvSession)
			return nil
		},
	}
}

func newProvidersCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the configured login providers",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()
			for _, p := range a.cfg.Providers {
				fmt.Fprintf(env.Out, "%-10s %s\n", p, ui.C(ui.Current().Muted, a.client.AuthorizationURL(strings.ToLower(p))))
			}
			return nil
		},
	}
}
