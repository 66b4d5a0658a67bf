/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/serialterm"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info [port]",
	Short: "Display detailed information about a serial port",
	Long: `Display what the operating system reports about one attached port,
including USB vendor/product IDs and serial number when available.

Examples:
  serialterm info /dev/ttyUSB0
  serialterm info COM3`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := portArg(args)
		if name == "" {
			fmt.Fprintln(os.Stderr, "Error: no port given")
			os.Exit(1)
		}

		dir := serialterm.NewDirectory(serialterm.WithDirectoryLogger(logger))
		p, ok := dir.Lookup(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: port %s not found\n", name)
			os.Exit(1)
		}
		renderInfo(os.Stdout, p)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func renderInfo(w io.Writer, p serialterm.PortDescriptor) {
	fmt.Fprintf(w, "Port Information: %s\n\n", p.Name)
	fmt.Fprintf(w, "  Description: %s\n", p.Description)

	if !p.IsUSB {
		return
	}
	fmt.Fprintln(w, "\nUSB Device Information:")
	if p.VID != "" {
		fmt.Fprintf(w, "  Vendor ID:    %s\n", p.VID)
	}
	if p.PID != "" {
		fmt.Fprintf(w, "  Product ID:   %s\n", p.PID)
	}
	if p.SerialNumber != "" {
		fmt.Fprintf(w, "  Serial:       %s\n", p.SerialNumber)
	}
}
