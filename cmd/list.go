/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/serialterm"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports currently attached to this machine.

USB adapters are reported with their vendor/product IDs and serial number
when the operating system exposes them. An empty list is not an error.

Example usage:
  serialterm list
  serialterm list --table
  serialterm list --filter usb
  serialterm list --baud-rates`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		baudRates, _ := cmd.Flags().GetBool("baud-rates")

		if baudRates {
			renderBaudRates(os.Stdout, settings.Baud)
			return
		}

		dir := serialterm.NewDirectory(serialterm.WithDirectoryLogger(logger))
		ports := filterPorts(dir.ListPorts(), filterType)

		if len(ports) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(os.Stdout, ports)
		} else {
			renderSimple(os.Stdout, ports)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().Bool("baud-rates", false, "List the standard baud rates instead of ports")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serialterm.PortDescriptor, filterType string) []serialterm.PortDescriptor {
	switch strings.ToLower(filterType) {
	case "", "all":
		return ports
	}

	var filtered []serialterm.PortDescriptor
	for _, p := range ports {
		switch strings.ToLower(filterType) {
		case "usb":
			if p.IsUSB || strings.Contains(p.Description, "USB") {
				filtered = append(filtered, p)
			}
		case "standard":
			if !p.IsUSB && !strings.Contains(p.Description, "USB") {
				filtered = append(filtered, p)
			}
		}
	}
	return filtered
}

const (
	colPort   = "port"
	colDesc   = "desc"
	colUSB    = "usb"
	colSerial = "serial"
)

// renderTable renders the port list as a static bordered table
func renderTable(w io.Writer, ports []serialterm.PortDescriptor) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(ports))

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		usb := "-"
		if p.IsUSB {
			usb = fmt.Sprintf("%s:%s", p.VID, p.PID)
		}
		serial := p.SerialNumber
		if serial == "" {
			serial = "-"
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPort:   p.Name,
			colDesc:   p.Description,
			colUSB:    usb,
			colSerial: serial,
		}))
	}

	t := table.New([]table.Column{
		table.NewColumn(colPort, "Port", 22),
		table.NewColumn(colDesc, "Description", 28),
		table.NewColumn(colUSB, "VID:PID", 11),
		table.NewColumn(colSerial, "Serial", 18),
	}).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")))

	fmt.Fprintln(w, t.View())
}

// renderSimple renders the port list in simple text format
func renderSimple(w io.Writer, ports []serialterm.PortDescriptor) {
	for _, p := range ports {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
	}
}

func renderBaudRates(w io.Writer, selected int) {
	for _, r := range serialterm.StandardBaudRates() {
		marker := " "
		if r == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d\n", marker, r)
	}
}
