package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

// listItem adapts a todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) Title() string       { return i.todo.Title }
func (i listItem) Description() string { return i.todo.Description }
func (i listItem) FilterValue() string { return i.todo.Title + " " + i.todo.Description }

func toItems(todos []model.Todo) []list.Item {
	out := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		out = append(out, listItem{todo: t})
	}
	return out
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	boxStyled := mutedStyle.Render(boxUnchecked)
	textStyled := it.todo.Title
	if it.todo.Completed {
		boxStyled = successStyle.Render(boxChecked)
		textStyled = doneStyle.Render(it.todo.Title)
	}
	line := fmt.Sprintf("%s %s", boxStyled, textStyled)
	if desc := firstLine(it.todo.Description); desc != "" {
		line += "  " + mutedStyle.Render(desc)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
