/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	rxStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("117"))
)

// printable replaces control characters so previews stay on one line.
func printable(s string, max int) string {
	if r := []rune(s); max > 0 && len(r) > max {
		s = string(r[:max]) + "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '·'
		}
		return r
	}, s)
}

// lineWriter prints received lines, optionally with a timestamp prefix.
type lineWriter struct {
	w          io.Writer
	timestamps bool
	styled     bool
	now        func() time.Time
}

func (lw lineWriter) write(line string) {
	text := line
	if lw.styled {
		text = rxStyle.Render(line)
	}
	if lw.timestamps {
		fmt.Fprintf(lw.w, "[%s] %s\n", lw.now().Format("15:04:05.000"), text)
		return
	}
	fmt.Fprintln(lw.w, text)
}
