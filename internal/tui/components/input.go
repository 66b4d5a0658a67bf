package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialterm/internal/tui/styles"
)

const maxHistory = 100

// Input is the command line with shell-style history.
type Input struct {
	textInput     textinput.Model
	history       []string
	historyIndex  int
	currentInput  string // Store current input when navigating history
	terminalWidth int
	clearOnSend   bool
}

func NewInput(placeholder string, clearOnSend bool) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Prompt = "" // We handle prompt styling separately

	return &Input{
		textInput:    ti,
		historyIndex: -1,
		clearOnSend:  clearOnSend,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// Account for: border(2) + padding(2) + prompt(1) + space(1) = 6 characters
	usableWidth := width - 6
	if usableWidth < 20 {
		usableWidth = 20
	}
	i.textInput.Width = usableWidth
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) ClearOnSend() bool {
	return i.clearOnSend
}

// Sent records command in history and clears the field if configured to.
func (i *Input) Sent(command string) {
	i.AddToHistory(command)
	if i.clearOnSend {
		i.textInput.SetValue("")
	}
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) View(insertMode bool) string {
	prompt := styles.SuccessStyle.Render(">")

	var content string
	if insertMode {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		hint := styles.MutedStyle.Render("Press 'i' to type a command")
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", hint)
	}

	// RoundedBorder adds 2 columns and Padding(0, 1) another 2.
	width := i.terminalWidth - 4
	if width < 10 {
		width = 10
	}
	style := styles.InputStyle.
		Width(width).
		AlignHorizontal(lipgloss.Left)
	if insertMode {
		style = style.BorderForeground(styles.Green)
	}
	return style.Render(content)
}

// AddToHistory adds a command to the history if it's not empty or a duplicate
func (i *Input) AddToHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	if len(i.history) == 0 || i.history[len(i.history)-1] != command {
		i.history = append(i.history, command)
		if len(i.history) > maxHistory {
			i.history = i.history[1:]
		}
	}

	i.historyIndex = -1
	i.currentInput = ""
}

func (i *Input) History() []string {
	return i.history
}

// NavigateHistoryUp moves up in command history
func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	// First time navigating: save current input
	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}

	i.textInput.SetValue(i.history[i.historyIndex])
}

// NavigateHistoryDown moves down in command history
func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}

	i.historyIndex = -1
	i.textInput.SetValue(i.currentInput)
	i.currentInput = ""
}
