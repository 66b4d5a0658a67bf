package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/allbin/serialterm"
	"github.com/allbin/serialterm/internal/config"
	"github.com/allbin/serialterm/internal/tui/components"
	"github.com/allbin/serialterm/internal/tui/keys"
	"github.com/allbin/serialterm/internal/tui/styles"
)

// maxLinesPerTick keeps a chatty device from starving the render loop.
const maxLinesPerTick = 256

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

type pollMsg struct{}

type portsMsg struct {
	ports []serialterm.PortDescriptor
}

// Options wires a Console to its collaborators.
type Options struct {
	Session   *serialterm.Session
	Directory *serialterm.Directory
	Settings  config.Settings
	Logger    zerolog.Logger
}

// Console is the interactive terminal: pick a port and baud rate, connect,
// send commands and watch the replies.
type Console struct {
	session   *serialterm.Session
	directory *serialterm.Directory
	settings  config.Settings
	logger    zerolog.Logger

	selector  *components.Selector
	terminal  *components.Terminal
	input     *components.Input
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.ConsoleKeys

	inputMode InputMode
	ready     bool
	now       func() time.Time
}

func NewConsole(opts Options) *Console {
	if opts.Session == nil {
		opts.Session = serialterm.NewSession(serialterm.WithLogger(opts.Logger))
	}
	if opts.Directory == nil {
		opts.Directory = serialterm.NewDirectory(serialterm.WithDirectoryLogger(opts.Logger))
	}
	if opts.Settings.PollInterval <= 0 {
		opts.Settings.PollInterval = serialterm.DefaultPollInterval
	}

	terminal := components.NewTerminal(0, 0)
	terminal.SetAutoScroll(opts.Settings.AutoScroll)
	terminal.SetWordWrap(opts.Settings.WordWrap)

	return &Console{
		session:   opts.Session,
		directory: opts.Directory,
		settings:  opts.Settings,
		logger:    opts.Logger,
		selector:  components.NewSelector(serialterm.StandardBaudRates(), opts.Settings.Baud),
		terminal:  terminal,
		input:     components.NewInput("Type a command and press Enter to send...", opts.Settings.ClearOnSend),
		statusBar: components.NewStatusBar(),
		help:      help.New(),
		keys:      keys.NewConsoleKeys(),
		now:       time.Now,
	}
}

func (m *Console) Init() tea.Cmd {
	return tea.Batch(m.refreshPorts(), m.tick())
}

func (m *Console) tick() tea.Cmd {
	return tea.Tick(m.settings.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m *Console) refreshPorts() tea.Cmd {
	d := m.directory
	return func() tea.Msg {
		return portsMsg{ports: d.ListPorts()}
	}
}

func (m *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case pollMsg:
		m.poll()
		cmds = append(cmds, m.tick())

	case portsMsg:
		m.selector.SetPorts(msg.ports, m.settings.Port)
		m.log(components.EntryInfo, fmt.Sprintf("Found %d ports", len(msg.ports)))

	case tea.KeyMsg:
		if m.inputMode == InputModeInsert {
			if cmd, handled := m.handleInsertKey(msg); handled {
				m.keys.SetConnected(m.session.IsOpen())
				return m, cmd
			}
		} else {
			cmd := m.handleNormalKey(msg)
			m.keys.SetConnected(m.session.IsOpen())
			return m, cmd
		}
	}

	if m.inputMode == InputModeInsert {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.terminal.Update(msg))

	m.keys.SetConnected(m.session.IsOpen())
	return m, tea.Batch(cmds...)
}

func (m *Console) handleNormalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.InsertMode):
		m.inputMode = InputModeInsert
		return m.input.Focus()

	case key.Matches(msg, m.keys.Connect):
		if m.session.IsOpen() {
			m.disconnect()
		} else {
			m.connect()
		}

	case key.Matches(msg, m.keys.Refresh):
		return m.refreshPorts()

	case key.Matches(msg, m.keys.NextPort):
		m.selector.NextPort()
	case key.Matches(msg, m.keys.PrevPort):
		m.selector.PrevPort()
	case key.Matches(msg, m.keys.NextBaud):
		m.selector.NextBaud()
	case key.Matches(msg, m.keys.PrevBaud):
		m.selector.PrevBaud()

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.AutoScroll):
		m.terminal.SetAutoScroll(!m.terminal.AutoScroll())
	case key.Matches(msg, m.keys.WordWrap):
		m.terminal.SetWordWrap(!m.terminal.WordWrap())
	case key.Matches(msg, m.keys.ScrollUp):
		m.terminal.ScrollUp(1)
	case key.Matches(msg, m.keys.ScrollDown):
		m.terminal.ScrollDown(1)

	default:
		if i := m.keys.MatchPreset(msg); i >= 0 && i < len(m.settings.Presets) {
			m.send(m.settings.Presets[i].Command, false)
		}
	}
	return nil
}

func (m *Console) handleInsertKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.shutdown()
		return tea.Quit, true
	case key.Matches(msg, m.keys.Escape):
		m.inputMode = InputModeNormal
		m.input.Blur()
	case key.Matches(msg, m.keys.Enter):
		m.send(m.input.Value(), true)
	case key.Matches(msg, m.keys.Up):
		m.input.NavigateHistoryUp()
	case key.Matches(msg, m.keys.Down):
		m.input.NavigateHistoryDown()
	default:
		return nil, false
	}
	return nil, true
}

func (m *Console) connect() {
	port, ok := m.selector.Port()
	if !ok {
		m.log(components.EntryError, "No port selected.")
		return
	}

	settings := m.settings
	settings.Baud = m.selector.Baud()
	cfg, err := settings.SessionConfig(port.Name)
	if err != nil {
		m.log(components.EntryError, err.Error())
		return
	}

	if err := m.session.Open(cfg); err != nil {
		var oe *serialterm.OpenError
		if errors.As(err, &oe) {
			m.log(components.EntryError, fmt.Sprintf("Could not open %s (%s): %v", oe.Port, oe.Reason, oe.Err))
		} else {
			m.log(components.EntryError, err.Error())
		}
		return
	}
	m.log(components.EntryInfo, fmt.Sprintf("Connected to %s at %d baud", cfg.PortName, cfg.BaudRate))
}

func (m *Console) disconnect() {
	cfg, _ := m.session.Config()
	if err := m.session.Close(); err != nil {
		m.log(components.EntryError, fmt.Sprintf("Closing %s: %v", cfg.PortName, err))
	}
	m.log(components.EntryInfo, fmt.Sprintf("Disconnected from %s", cfg.PortName))
}

// send writes command plus the configured line ending. Presets do not touch
// the input line or its history.
func (m *Console) send(command string, fromInput bool) {
	payload := command
	if payload != "" {
		payload += m.settings.Terminator()
	}

	err := m.session.WriteString(payload)
	switch {
	case errors.Is(err, serialterm.ErrNotConnected):
		m.log(components.EntryInfo, "No ports connected.")
		return
	case errors.Is(err, serialterm.ErrEmptyCommand):
		m.log(components.EntryInfo, "Command is empty.")
		return
	case err != nil:
		m.log(components.EntryError, err.Error())
		if !m.session.IsOpen() {
			m.log(components.EntryInfo, "Connection lost.")
		}
		return
	}

	m.logger.Debug().Str("command", command).Msg("sent from console")
	m.log(components.EntryTX, command)
	if fromInput {
		m.input.Sent(command)
	}
}

func (m *Console) poll() {
	if !m.session.IsOpen() {
		return
	}

	var entries []components.Entry
	for i := 0; i < maxLinesPerTick; i++ {
		line, ok, err := m.session.PollLine()
		if err != nil {
			entries = append(entries,
				components.Entry{Time: m.now(), Kind: components.EntryError, Text: err.Error()},
				components.Entry{Time: m.now(), Kind: components.EntryInfo, Text: "Connection lost."},
			)
			break
		}
		if !ok {
			break
		}
		entries = append(entries, components.Entry{Time: m.now(), Kind: components.EntryRX, Text: line})
	}
	if len(entries) > 0 {
		m.terminal.Add(entries...)
	}
}

func (m *Console) shutdown() {
	if err := m.session.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("closing session on exit")
	}
}

func (m *Console) log(kind components.EntryKind, text string) {
	m.terminal.Add(components.Entry{Time: m.now(), Kind: kind, Text: text})
}

func (m *Console) resize(width, height int) {
	// header(1) + content border(1) + input(3) + status bar(1)
	const chrome = 6
	m.terminal.SetSize(width, height-chrome)
	m.input.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.help.Width = width
	m.ready = true
}

func (m *Console) framing() (string, int) {
	if cfg, ok := m.session.Config(); ok {
		return fmt.Sprintf("%d%s%d", cfg.DataBits, cfg.Parity, cfg.StopBits), cfg.BaudRate
	}
	parity, _ := serialterm.ParseParity(m.settings.Parity)
	return fmt.Sprintf("%d%s%d", m.settings.DataBits, parity, m.settings.StopBits), m.selector.Baud()
}

func (m *Console) header() string {
	title := styles.TitleStyle.Render("serialterm")

	port, ok := m.selector.Port()
	var detail string
	switch {
	case !ok:
		detail = "no serial ports found (r to refresh)"
	default:
		detail = fmt.Sprintf("%s  %s  (%d ports)", port.Name, port.Description, len(m.selector.Ports()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, title, " ", styles.MutedStyle.Render(detail))
}

func (m *Console) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	framing, baud := m.framing()
	portName := ""
	if cfg, ok := m.session.Config(); ok {
		portName = cfg.PortName
	} else if p, ok := m.selector.Port(); ok {
		portName = p.Name
	}

	status := m.statusBar.View(components.StatusInfo{
		InsertMode: m.inputMode == InputModeInsert,
		Port:       portName,
		Connected:  m.session.IsOpen(),
		Framing:    framing,
		Baud:       baud,
		Stats:      m.session.Stats(),
		AutoScroll: m.terminal.AutoScroll(),
		WordWrap:   m.terminal.WordWrap(),
		Clock:      m.now().Format("15:04:05"),
	})

	parts := []string{m.header(), styles.ContentBorderStyle.Render(content)}
	if m.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(m.help.View(m.keys)))
	}
	parts = append(parts, m.input.View(m.inputMode == InputModeInsert), status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
