package styles

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette, trimmed to what the console draws with.
var (
	Base     = lipgloss.Color("#1e1e2e")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Sky    = lipgloss.Color("#89dceb")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(Red).
				Bold(true)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(1, 2).
			Margin(1, 0)

	TimestampStyle = lipgloss.NewStyle().Foreground(Subtext0)
	RXStyle        = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	TXStyle        = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	InfoStyle      = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(Red).Bold(true)
	MutedStyle     = lipgloss.NewStyle().Foreground(Overlay0)
	SuccessStyle   = lipgloss.NewStyle().Foreground(Green).Bold(true)
)

// Status returns the indicator style for a connection state.
func Status(connected bool) lipgloss.Style {
	if connected {
		return StatusConnectedStyle
	}
	return StatusDisconnectedStyle
}
