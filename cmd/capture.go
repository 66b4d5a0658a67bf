/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <output-file> [port]",
	Short: "Capture received lines to a file",
	Long: `Capture every line received on a serial port to a file for later parsing.

Runs continuously until interrupted (Ctrl+C). The output file is opened in
append mode, allowing you to resume captures without overwriting existing
data. Each line is written with its receive timestamp unless --raw is set.

Example usage:
  serialterm capture data.log /dev/ttyUSB0
  serialterm capture output.txt -p COM3 --baud 9600
  serialterm capture capture.log --console`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		outputPath := args[0]
		showConsole, _ := cmd.Flags().GetBool("console")
		raw, _ := cmd.Flags().GetBool("raw")

		cfg, err := settings.SessionConfig(portArg(args[1:]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()

		fmt.Printf("%s Capturing %s to %s (Ctrl+C to stop)\n", infoStyle.Render("⚡"), cfg.PortName, outputPath)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		toFile := lineWriter{w: file, timestamps: !raw, now: time.Now}
		toConsole := lineWriter{w: os.Stdout, timestamps: true, styled: true, now: time.Now}
		var lines int
		onLine := func(line string) {
			lines++
			toFile.write(line)
			if showConsole {
				toConsole.write(line)
			}
		}

		err = runListen(ctx, cfg, settings.PollInterval, onLine)
		fmt.Printf("%s Captured %d lines\n", successStyle.Render("✓"), lines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display incoming lines on console while capturing")
	captureCmd.Flags().Bool("raw", false, "Write lines without timestamps")
}
