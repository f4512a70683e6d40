package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todos"
)

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m Model) updateTodos(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAdd, modeEdit:
		return m.updateForm(msg)
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "Y":
			id := model.ID(m.deleteID)
			m.mode = modeBrowse
			m.deleteID = ""
			return m, m.storeOp("delete", func(s *todos.Store) error { return s.Remove(m.ctx, id) })
		default:
			m.mode = modeBrowse
			m.deleteID = ""
			return m, nil
		}
	}

	// let the list own keys while filtering
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case " ":
		if t, ok := m.selected(); ok {
			return m, m.storeOp("toggle", func(s *todos.Store) error { return s.ToggleComplete(m.ctx, t.ID, t.Completed) })
		}
		return m, nil
	case "d":
		if t, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
			m.deleteID = t.ID.String()
		}
		return m, nil
	case "a":
		m.mode = modeAdd
		m.formErr = ""
		m.editID = ""
		m.titleIn.SetValue("")
		m.descIn.SetValue("")
		m.descFoc = false
		m.descIn.Blur()
		m.resize()
		cmd := m.titleIn.Focus()
		return m, cmd
	case "e":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.formErr = ""
		m.editID = t.ID.String()
		m.titleIn.SetValue(t.Title)
		m.titleIn.CursorEnd()
		m.descIn.SetValue(t.Description)
		m.descFoc = false
		m.descIn.Blur()
		m.resize()
		cmd := m.titleIn.Focus()
		return m, cmd
	case "r":
		return m, m.storeOp("fetch", func(s *todos.Store) error { return s.Fetch(m.ctx) })
	case "L":
		return m, m.logout()
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return m, nil
	case "tab", "shift+tab":
		m.descFoc = !m.descFoc
		if m.descFoc {
			m.titleIn.Blur()
			cmd := m.descIn.Focus()
			return m, cmd
		}
		m.descIn.Blur()
		cmd := m.titleIn.Focus()
		return m, cmd
	case "ctrl+s":
		return m.submitForm()
	case "enter":
		if !m.descFoc {
			return m.submitForm()
		}
	}
	var cmd tea.Cmd
	if m.descFoc {
		m.descIn, cmd = m.descIn.Update(msg)
	} else {
		m.titleIn, cmd = m.titleIn.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeForm() {
	m.mode = modeBrowse
	m.formErr = ""
	m.editID = ""
	m.titleIn.SetValue("")
	m.titleIn.Blur()
	m.descIn.SetValue("")
	m.descIn.Blur()
	m.descFoc = false
	m.resize()
}

// submitForm validates locally; a blank title never reaches the API.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	d, err := todos.ValidateDraft(model.Draft{Title: m.titleIn.Value(), Description: m.descIn.Value()})
	if err != nil {
		m.formErr = "Title is required."
		return m, nil
	}
	m.formErr = ""
	if m.mode == modeEdit {
		id := model.ID(m.editID)
		if cur, ok := m.store.Get(id); ok {
			d.Completed = cur.Completed
		}
		return m, m.storeOp("edit", func(s *todos.Store) error {
			_, err := s.Update(m.ctx, id, d)
			return err
		})
	}
	return m, m.storeOp("add", func(s *todos.Store) error {
		_, err := s.Add(m.ctx, d)
		return err
	})
}

func (m Model) logout() tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: m.opt.Session.Logout(m.ctx)}
	}
}

// applyStore refreshes the list from the store after an operation.
func (m Model) applyStore(msg storeMsg) (tea.Model, tea.Cmd) {
	snap := m.store.Snapshot()
	idx := m.list.Index()
	m.list.SetItems(toItems(snap.Todos))
	if idx >= len(snap.Todos) {
		idx = len(snap.Todos) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = m.header(snap)

	if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
		m.log.Debug("store operation failed", zap.String("op", msg.op), zap.Error(msg.err))
	}
	switch msg.op {
	case "add", "edit":
		if msg.err != nil {
			// keep the form open so the user can retry
			m.formErr = msg.err.Error()
			return m, nil
		}
		if msg.op == "add" && len(snap.Todos) > 0 {
			m.list.Select(len(snap.Todos) - 1)
		}
		m.closeForm()
		m.status = "saved"
	case "delete":
		if msg.err == nil {
			m.status = "deleted"
		}
	case "toggle":
		if msg.err == nil {
			m.status = "toggled"
		}
	case "fetch":
		m.status = ""
	}
	return m, nil
}
