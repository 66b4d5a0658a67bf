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

	"github.com/allbin/serialterm"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [port]",
	Short: "Print lines received on a serial port",
	Long: `Open a serial port and print every newline-terminated line it receives
until interrupted (Ctrl+C).

Example usage:
  serialterm listen /dev/ttyUSB0
  serialterm listen -p COM3 --baud 9600
  serialterm listen --timestamps`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		timestamps, _ := cmd.Flags().GetBool("timestamps")

		cfg, err := settings.SessionConfig(portArg(args))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lw := lineWriter{w: os.Stdout, timestamps: timestamps, styled: true, now: time.Now}
		if err := runListen(ctx, cfg, settings.PollInterval, lw.write); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().BoolP("timestamps", "t", false, "Prefix each line with the time it was received")
}

// runListen opens cfg and hands each received line to onLine until ctx is
// cancelled or the port fails.
func runListen(ctx context.Context, cfg serialterm.Config, interval time.Duration, onLine func(string), opts ...serialterm.SessionOption) error {
	notifier := serialterm.NotifierFunc(func(e serialterm.Event) {
		switch e.Kind {
		case serialterm.EventLineReceived:
			onLine(e.Line)
		case serialterm.EventConnected:
			logger.Info().Str("port", e.Port).Msg("listening")
		}
	})

	opts = append([]serialterm.SessionOption{
		serialterm.WithLogger(logger),
		serialterm.WithNotifier(notifier),
	}, opts...)
	session := serialterm.NewSession(opts...)

	if err := session.Open(cfg); err != nil {
		return err
	}
	defer session.Close()

	return session.Poll(ctx, interval)
}
