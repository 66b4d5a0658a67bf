package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultScrollback bounds how many entries the terminal keeps.
const DefaultScrollback = 5000

// Terminal is the scrolling console log.
type Terminal struct {
	viewport   viewport.Model
	formatter  EntryFormatter
	entries    []Entry
	scrollback int
	autoScroll bool
	wordWrap   bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:   viewport.New(width, height),
		formatter:  EntryFormatter{ShowTimestamps: true},
		scrollback: DefaultScrollback,
		autoScroll: true,
		wordWrap:   true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.render()
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

// Add appends entries, trimming the oldest beyond the scrollback limit.
func (t *Terminal) Add(entries ...Entry) {
	t.entries = append(t.entries, entries...)
	if over := len(t.entries) - t.scrollback; over > 0 {
		t.entries = append(t.entries[:0], t.entries[over:]...)
	}
	t.render()
}

func (t *Terminal) Entries() []Entry {
	return t.entries
}

func (t *Terminal) Clear() {
	t.entries = t.entries[:0]
	t.viewport.SetContent("")
	t.viewport.GotoTop()
}

func (t *Terminal) AutoScroll() bool { return t.autoScroll }
func (t *Terminal) WordWrap() bool   { return t.wordWrap }

func (t *Terminal) SetAutoScroll(on bool) {
	t.autoScroll = on
	if on {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) SetWordWrap(on bool) {
	t.wordWrap = on
	t.render()
}

func (t *Terminal) ScrollUp(n int) {
	t.viewport.LineUp(n)
}

func (t *Terminal) ScrollDown(n int) {
	t.viewport.LineDown(n)
}

func (t *Terminal) render() {
	lines := make([]string, len(t.entries))
	style := lipgloss.NewStyle()
	if t.viewport.Width > 0 {
		if t.wordWrap {
			style = style.Width(t.viewport.Width)
		} else {
			style = style.MaxWidth(t.viewport.Width)
		}
	}
	for i, e := range t.entries {
		lines[i] = style.Render(t.formatter.Format(e))
	}
	t.viewport.SetContent(strings.Join(lines, "\n"))
	if t.autoScroll {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
