// Package cli is the tada command tree. Commands share one set of services
// built by bootstrap; protected commands go through the same guard the TUI
// uses.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes: 0 ok, 1 runtime failure, 2 usage or not logged in.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Env is the process surface the commands touch.
type Env struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Open launches a browser; nil disables it.
	Open func(url string) error
}

type flags struct {
	config  string
	verbose bool
	theme   string
}

// Execute runs tada against the real terminal.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return Run(ctx, args, Env{In: os.Stdin, Out: stdout, Err: stderr, Open: openBrowser})
}

// Run executes args and maps the outcome to an exit code.
func Run(ctx context.Context, args []string, env Env) int {
	root := NewRoot(env)
	root.SetArgs(args)
	root.SetIn(env.In)
	root.SetOut(env.Out)
	root.SetErr(env.Err)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	ui.Fail(env.Err, err.Error())
	if errors.Is(err, errNotLoggedIn) {
		ui.Hint(env.Err, "Run: tada login <provider>   (see `tada providers`)")
	}
	return exitCode(err)
}

// NewRoot builds the command tree with injectable IO.
func NewRoot(env Env) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "tada",
		Short: "tada - your todos, from the terminal",
		Long: `tada is a terminal client for the tada todo service.

Sign in once with an OAuth provider, then manage your todos with
subcommands or the full-screen interface (tada ui).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if f.theme != "" {
				ui.SetTheme(f.theme)
			}
		},
	}
	root.PersistentFlags().StringVar(&f.config, "config", "", "config file (default ~/.tada/config.yaml, ./.tada.yaml)")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log to stderr at debug level")
	root.PersistentFlags().StringVar(&f.theme, "theme", "", "color theme: classic, neon or mono")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usage(err) })

	root.AddCommand(
		newLoginCmd(env, f),
		newLogoutCmd(env, f),
		newWhoamiCmd(env, f),
		newStatusCmd(env, f),
		newProvidersCmd(env, f),
		newListCmd(env, f),
		newAddCmd(env, f),
		newEditCmd(env, f),
		newDoneCmd(env, f),
		newRemoveCmd(env, f),
		newShowCmd(env, f),
		newUICmd(env, f),
	)
	return root
}

// exitError carries a specific exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usage(err error) error { return &exitError{code: ExitUsage, err: err} }

func usagef(format string, a ...any) error { return usage(fmt.Errorf(format, a...)) }

var errNotLoggedIn = &exitError{code: ExitUsage, err: errors.New("not logged in")}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return ExitUsage
	}
	return ExitFailure
}

// withUsage turns positional-argument mistakes into usage errors.
func withUsage(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usagef("%s (usage: %s)", err, cmd.UseLine())
		}
		return nil
	}
}
