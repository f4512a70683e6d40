package tui

import (
	"fmt"
	"strings"

	"github.com/Makepad-fr/tada/internal/todos"
	"github.com/Makepad-fr/tada/internal/ui"
)

func (m Model) View() string {
	switch m.screen {
	case screenLogin:
		return m.loginView()
	case screenCallback:
		return "\n  " + m.spinner.View() + " Processing authentication...\n"
	case screenTodos:
		return m.todosView()
	}
	return "\n  " + m.spinner.View() + " Loading application...\n"
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to tada") + "\n")
	b.WriteString(mutedStyle.Render("Sign in to manage your todos") + "\n\n")

	if m.loginErr != "" {
		b.WriteString(errorStyle.Render(m.loginErr) + "\n\n")
	}

	if m.pasting {
		if m.authURL != "" {
			b.WriteString(m.loginNote + "\n")
			b.WriteString(accentStyle.Render(m.authURL) + "\n\n")
		}
		b.WriteString("After signing in, paste your " + m.opt.CookieName + " cookie value:\n")
		b.WriteString(m.cookieIn.View() + "\n\n")
		b.WriteString(helpStyle.Render("enter: continue • esc: back"))
		return boxed(b.String())
	}

	for i, p := range m.opt.Providers {
		label := "Login with " + providerLabel(p)
		if i == m.provCursor {
			b.WriteString(selectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString("  " + label + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓: choose • enter: login • p: paste session • q: quit"))
	return boxed(b.String())
}

func (m Model) header(snap todos.Snapshot) string {
	d, p := ui.Stats(snap.Todos)
	return fmt.Sprintf("My TODOs  %s %d  %s %d  Total %d",
		successStyle.Render(boxChecked), d,
		pendingStyle.Render(boxUnchecked), p,
		len(snap.Todos))
}

func (m Model) todosView() string {
	var b strings.Builder
	name := "User"
	if u := m.opt.Session.Snapshot().User; u != nil {
		name = u.DisplayName()
	}
	b.WriteString(titleStyle.Render("Welcome, "+name+"!") + "\n")

	if m.mode == modeAdd || m.mode == modeEdit {
		heading := "Add a new todo"
		submit := "Add Todo"
		if m.mode == modeEdit {
			heading, submit = "Edit todo", "Save"
		}
		form := titleStyle.Render(heading) + "\n" +
			m.titleIn.View() + "\n" +
			m.descIn.View() + "\n"
		if m.formErr != "" {
			form += errorStyle.Render(m.formErr) + "\n"
		}
		form += helpStyle.Render("enter/ctrl+s: "+submit+" • tab: switch field • esc: cancel")
		b.WriteString(boxed(form) + "\n")
	}

	var snap todos.Snapshot
	if m.store != nil {
		snap = m.store.Snapshot()
	}
	switch {
	case snap.Loading && len(snap.Todos) == 0:
		b.WriteString(m.spinner.View() + " Loading todos...\n")
	case len(snap.Todos) == 0:
		b.WriteString(m.header(snap) + "\n")
		b.WriteString(mutedStyle.Render("No todos yet. Add one above!") + "\n")
	default:
		b.WriteString(m.list.View() + "\n")
	}

	if snap.Error != "" {
		b.WriteString(errorStyle.Render("Error: "+snap.Error) + "\n")
	}
	if m.mode == modeConfirmDelete {
		title := m.deleteID
		if t, ok := m.selected(); ok {
			title = t.Title
		}
		b.WriteString(pendingStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title)) + "\n")
	} else if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status) + "\n")
	}
	if len(snap.Todos) == 0 && m.mode == modeBrowse {
		b.WriteString(helpStyle.Render("a: add • r: refresh • L: logout • q: quit"))
	}
	return b.String()
}
