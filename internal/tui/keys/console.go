package keys

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
)

// MaxPresets is how many presets get a number key.
const MaxPresets = 9

// ConsoleKeys are the bindings of the interactive console. Normal mode
// drives the connection; insert mode edits the command line.
type ConsoleKeys struct {
	Quit       key.Binding
	Help       key.Binding
	InsertMode key.Binding
	Escape     key.Binding

	Connect    key.Binding
	Refresh    key.Binding
	NextPort   key.Binding
	PrevPort   key.Binding
	NextBaud   key.Binding
	PrevBaud   key.Binding
	Clear      key.Binding
	AutoScroll key.Binding
	WordWrap   key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Presets    []key.Binding

	Enter key.Binding
	Up    key.Binding
	Down  key.Binding
}

func NewConsoleKeys() ConsoleKeys {
	k := ConsoleKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		InsertMode: key.NewBinding(
			key.WithKeys("i", "I"),
			key.WithHelp("i", "insert mode"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "normal mode"),
		),
		Connect: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "connect"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh ports"),
		),
		NextPort: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p/P", "next/prev port"),
		),
		PrevPort: key.NewBinding(
			key.WithKeys("P"),
		),
		NextBaud: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b/B", "next/prev baud"),
		),
		PrevBaud: key.NewBinding(
			key.WithKeys("B"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear log"),
		),
		AutoScroll: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle auto-scroll"),
		),
		WordWrap: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "toggle word wrap"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up", "pgup"),
			key.WithHelp("↑/k", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down", "pgdown"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send command"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous command"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next command"),
		),
	}

	for i := 1; i <= MaxPresets; i++ {
		n := strconv.Itoa(i)
		k.Presets = append(k.Presets, key.NewBinding(key.WithKeys(n)))
	}
	k.Presets[0].SetHelp("1-9", "send preset")
	return k
}

// SetConnected relabels the connect key for the current session state and
// locks port, baud and refresh selection while connected.
func (k *ConsoleKeys) SetConnected(connected bool) {
	for _, b := range []*key.Binding{&k.Refresh, &k.NextPort, &k.PrevPort, &k.NextBaud, &k.PrevBaud} {
		b.SetEnabled(!connected)
	}
	if connected {
		k.Connect.SetHelp("o", "disconnect")
		return
	}
	k.Connect.SetHelp("o", "connect")
}

// MatchPreset returns the 0-based preset index msg selects, or -1.
func (k ConsoleKeys) MatchPreset(msg fmt.Stringer) int {
	for i, b := range k.Presets {
		if key.Matches(msg, b) {
			return i
		}
	}
	return -1
}

func (k ConsoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Connect, k.InsertMode, k.Presets[0], k.Quit}
}

func (k ConsoleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Connect, k.Refresh, k.NextPort, k.NextBaud},
		{k.InsertMode, k.Escape, k.Enter, k.Presets[0]},
		{k.Clear, k.AutoScroll, k.WordWrap, k.ScrollUp, k.ScrollDown},
		{k.Help, k.Quit},
	}
}
