package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todos"
	"github.com/Makepad-fr/tada/internal/ui"
)

// session-bound todo store for one command
type todoCtx struct {
	*app
	user  string
	store *todos.Store
}

// openTodos bootstraps, guards and fetches the collection.
func openTodos(ctx context.Context, env Env, f *flags) (*todoCtx, error) {
	a, err := bootstrap(env, f)
	if err != nil {
		return nil, err
	}
	u, err := a.requireSession(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	tc := &todoCtx{app: a, user: u.DisplayName(), store: a.newStore()}
	if err := tc.store.Fetch(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("load todos: %w", err)
	}
	return tc, nil
}

// pick resolves a 1-based index from `tada ls`.
func (tc *todoCtx) pick(arg string) (model.Todo, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Todo{}, usagef("not a number: %s", arg)
	}
	list := tc.store.Snapshot().Todos
	if n < 1 || n > len(list) {
		ui.Hint(tc.env.Err, "Hint: run `tada ls` to see valid indexes")
		return model.Todo{}, usagef("index out of range: have %d, got %d", len(list), n)
	}
	return list[n-1], nil
}

func validate(d model.Draft) (model.Draft, error) {
	d, err := todos.ValidateDraft(d)
	if errors.Is(err, todos.ErrTitleRequired) {
		return d, usagef("Title is required.")
	}
	return d, err
}

func newListCmd(env Env, f *flags) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your todos",
		Args:    withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := openTodos(cmd.Context(), env, f)
			if err != nil {
				return err
			}
			defer tc.close()
			ui.TodoPanel(env.Out, tc.user, tc.store.Snapshot().Todos, group)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&group, "group", "g", false, "group output by pending/done")
	return cmd
}

func newAddCmd(env Env, f *flags) *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (the title can be multiple words)",
		Args:  withUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := validate(model.Draft{Title: strings.Join(args, " "), Description: desc})
			if err != nil {
				return err
			}
			a, err := bootstrap(env, f)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.newStore().Add(cmd.Context(), d); err != nil {
				return fmt.Errorf("add: %w", err)
			}
			ui.OK(env.Out, "added")
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "description", "d", "", "optional details")
	return cmd
}

func newEditCmd(env Env, f *flags) *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Change the title or description of a todo",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("description") {
				return usagef("nothing to change: pass --title and/or --description")
			}
			tc, err := openTodos(cmd.Context(), env, f)
			if err != nil {
				return err
			}
			defer tc.close()
			t, err := tc.pick(args[0])
			if err != nil {
				return err
			}
			d := model.DraftOf(t)
			if cmd.Flags().Changed("title") {
				d.Title = title
			}
			if cmd.Flags().Changed("description") {
				d.Description = desc
			}
			if d, err = validate(d); err != nil {
				return err
			}
			if _, err := tc.store.Update(cmd.Context(), t.ID, d); err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			ui.OK(env.Out, "updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&desc, "description", "d", "", "new description")
	return cmd
}

func newDoneCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle the todo at a 1-based index",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := openTodos(cmd.Context(), env, f)
			if err != nil {
				return err
			}
			defer tc.close()
			t, err := tc.pick(args[0])
			if err != nil {
				return err
			}
			if err := tc.store.ToggleComplete(cmd.Context(), t.ID, t.Completed); err != nil {
				return fmt.Errorf("done: %w", err)
			}
			ui.OK(env.Out, "toggled")
			return nil
		},
	}
}

func newRemoveCmd(env Env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the todo at a 1-based index",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := openTodos(cmd.Context(), env, f)
			if err != nil {
				return err
			}
			defer tc.close()
			t, err := tc.pick(args[0])
			if err != nil {
				return err
			}
			if err := tc.store.Remove(cmd.Context(), t.ID); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			ui.OK(env.Out, "removed")
			return nil
		},
	}
}

func newShowCmd(env Env, f *flags) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "show <index>",
		Short: "Show one todo with its description rendered as markdown",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := openTodos(cmd.Context(), env, f)
			if err != nil {
				return err
			}
			defer tc.close()
			t, err := tc.pick(args[0])
			if err != nil {
				return err
			}
			out, err := renderTodo(t, ui.Current().Name, width)
			if err != nil {
				return err
			}
			fmt.Fprint(env.Out, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}

func todoMarkdown(t model.Todo) string {
	var b strings.Builder
	status := "pending"
	if t.Completed {
		status = "done"
	}
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "*Status:* %s\n\n", status)
	if strings.TrimSpace(t.Description) != "" {
		b.WriteString(t.Description)
		b.WriteString("\n")
	}
	return b.String()
}

func renderTodo(t model.Todo, theme string, width int) (string, error) {
	style := "dark"
	if theme == "mono" {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	out, err := r.Render(todoMarkdown(t))
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return out, nil
}
