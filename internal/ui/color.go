package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	symCheck = "✔"
	symCross = "✖"
)

// SetColorForcing overrides TTY detection. disable wins over force.
func SetColorForcing(force, disable bool) {
	switch {
	case disable:
		color.NoColor = true
	case force:
		color.NoColor = false
	}
}

// C paints s with c; a nil color leaves s plain.
func C(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, C(Current().Success, symCheck+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, C(Current().Error, symCross+" "+msg)) }
func Hint(w io.Writer, msg string) { fmt.Fprintln(w, C(Current().Muted, msg)) }
