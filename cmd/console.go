/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/serialterm"
	"github.com/allbin/serialterm/internal/tui/models"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:     "console [port]",
	Aliases: []string{"connect"},
	Short:   "Interactive serial console",
	Long: `Open the interactive console.

Choose a port and baud rate, connect, then type commands or fire the
configured presets with the number keys. Replies are shown line by line as
they arrive.

Normal mode keys:
  o       connect / disconnect
  r       refresh the port list
  p / P   next / previous port
  b / B   next / previous baud rate
  1-9     send a preset
  i       type a command (esc to leave)
  c       clear the log
  f / w   toggle auto-scroll / word wrap
  ?       help
  q       quit

Logs go to --log-file when set and are discarded otherwise.

Example usage:
  serialterm console
  serialterm console /dev/ttyACM0 -b 9600`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings.Port = portArg(args)
		m := models.NewConsole(models.Options{
			Session:   serialterm.NewSession(serialterm.WithLogger(logger)),
			Directory: serialterm.NewDirectory(serialterm.WithDirectoryLogger(logger)),
			Settings:  settings,
			Logger:    logger,
		})

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
