package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialterm"
	"github.com/allbin/serialterm/internal/tui/styles"
)

// StatusInfo is everything the status bar shows for one frame.
type StatusInfo struct {
	InsertMode bool
	Port       string
	Connected  bool
	Framing    string // e.g. "8N1"
	Baud       int
	Stats      serialterm.Stats
	AutoScroll bool
	WordWrap   bool
	Clock      string
}

type StatusBar struct {
	width int
}

func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// View renders a single-line status bar: mode, port and connection state on
// the left, line settings, counters and clock on the right.
func (sb *StatusBar) View(info StatusInfo) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(styles.Blue).
		Bold(true).
		Padding(0, 1)
	modeText := "NORMAL"
	if info.InsertMode {
		modeStyle = modeStyle.Background(styles.Green)
		modeText = "INSERT"
	}
	mode := modeStyle.Render(modeText)

	portName := info.Port
	if portName == "" {
		portName = "no port"
	}
	port := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(portName)

	indicator := "○"
	if info.Connected {
		indicator = "●"
	}
	connection := styles.Status(info.Connected).Render(indicator)

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	flags := ""
	if info.AutoScroll {
		flags += "F"
	}
	if info.WordWrap {
		flags += "W"
	}
	details := fmt.Sprintf("⚡ %d %s  rx:%d tx:%d", info.Baud, info.Framing, info.Stats.LinesReceived, info.Stats.CommandsSent)
	if info.Stats.LinesDropped > 0 {
		details += fmt.Sprintf(" drop:%d", info.Stats.LinesDropped)
	}
	if flags != "" {
		details += " [" + flags + "]"
	}
	detailsView := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(details)

	clock := lipgloss.NewStyle().
		Foreground(styles.Subtext1).
		Padding(0, 1).
		Render(info.Clock)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, connection, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, detailsView, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
