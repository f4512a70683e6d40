package ui

import (
	"fmt"
	"io"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitle = 80

// Stats counts completed and pending todos.
func Stats(todos []model.Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// TodoPanel prints the todo list the way `tada ls` shows it.
func TodoPanel(w io.Writer, who string, todos []model.Todo, group bool) {
	t := Current()
	d, p := Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "My TODOs"),
		C(t.Success, t.SymDone), d,
		C(t.Pending, t.SymPending), p,
		C(t.Accent, "Total"), len(todos),
	)

	var lines []string
	if who != "" {
		lines = append(lines, C(t.Muted, "Welcome, "+who+"!"))
	}
	lines = append(lines, header)
	lines = append(lines, C(t.Muted, ProgressBar(d, d+p, 28)))
	lines = append(lines, "")
	if group {
		lines = append(lines, GroupLines(todos)...)
	} else {
		lines = append(lines, FlatLines(todos)...)
	}
	lines = append(lines, "")
	lines = append(lines, C(t.Muted, "Tip: add with `tada add \"Buy milk\" -d \"2 litres\"`"))
	Panel(w, lines)
}

// FlatLines renders todos with their 1-based index.
func FlatLines(todos []model.Todo) []string {
	if len(todos) == 0 {
		return []string{C(Current().Muted, "No todos yet. Add one above!")}
	}
	out := make([]string, 0, len(todos))
	for i, td := range todos {
		out = append(out, itemLines(i+1, td)...)
	}
	return out
}

func itemLines(index int, td model.Todo) []string {
	t := Current()
	box, c := t.BoxUnchecked, t.Muted
	if td.Completed {
		box, c = t.BoxChecked, t.Success
	}
	title := td.Title
	if len(title) > maxTitle {
		title = title[:maxTitle-3] + "..."
	}
	lines := []string{fmt.Sprintf("%2d. %s %s", index, C(c, box), title)}
	if td.Description != "" {
		desc := td.Description
		if len(desc) > maxTitle {
			desc = desc[:maxTitle-3] + "..."
		}
		lines = append(lines, "      "+C(t.Muted, desc))
	}
	return lines
}

// GroupLines splits pending from done, keeping the global index so that
// `tada done N` still refers to the same item.
func GroupLines(todos []model.Todo) []string {
	t := Current()
	var pend, done []string
	for i, td := range todos {
		if td.Completed {
			done = append(done, itemLines(i+1, td)...)
		} else {
			pend = append(pend, itemLines(i+1, td)...)
		}
	}
	var lines []string
	lines = append(lines, C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, C(t.Muted, "(none)"))
	} else {
		lines = append(lines, pend...)
	}
	lines = append(lines, "")
	lines = append(lines, C(t.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, C(t.Muted, "(none)"))
	} else {
		lines = append(lines, done...)
	}
	return lines
}
