/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialterm"
	"github.com/allbin/serialterm/internal/config"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [command]",
	Short: "Send one command to a serial port",
	Long: `Send a single command to the configured serial port and optionally wait
for replies.

The command can be given as an argument, as a named preset, or piped on
stdin. The configured line ending (none by default) is appended.

Example usage:
  serialterm send leader_red_task -p /dev/ttyUSB0
  serialterm send --preset toggle --wait 2s
  serialterm send "AT+GMR" --line-ending crlf
  echo "status" | serialterm send`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		preset, _ := cmd.Flags().GetString("preset")
		wait, _ := cmd.Flags().GetDuration("wait")

		command, err := resolveCommand(args, preset, settings, os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg, err := settings.SessionConfig("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		session := serialterm.NewSession(serialterm.WithLogger(logger))
		opts := sendOptions{
			Command:      command,
			Terminator:   settings.Terminator(),
			Wait:         wait,
			PollInterval: settings.PollInterval,
		}
		if err := sendCommand(cmd.Context(), session, cfg, opts, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("preset", "P", "", "Send a named preset from the config")
	sendCmd.Flags().DurationP("wait", "w", 0, "Print replies for this long after sending")
	sendCmd.Flags().StringP("line-ending", "e", "none", "Append a line ending: none, lf, cr, crlf")
}

// resolveCommand picks the command text from the argument, a preset or stdin.
func resolveCommand(args []string, preset string, s config.Settings, stdin *os.File) (string, error) {
	if preset != "" {
		if len(args) > 0 {
			return "", errors.New("give either a command or --preset, not both")
		}
		p, ok := s.Preset(preset)
		if !ok {
			return "", fmt.Errorf("unknown preset %q", preset)
		}
		return p.Command, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}

	stat, err := stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", errors.New("no command given")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

type sendOptions struct {
	Command      string
	Terminator   string
	Wait         time.Duration
	PollInterval time.Duration
}

// sendCommand opens cfg, writes the command plus its terminator and prints
// replies until opts.Wait elapses.
func sendCommand(ctx context.Context, session *serialterm.Session, cfg serialterm.Config, opts sendOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = serialterm.DefaultPollInterval
	}

	fmt.Fprintf(out, "%s Opening %s at %d baud...\n", infoStyle.Render("⚡"), cfg.PortName, cfg.BaudRate)
	if err := session.Open(cfg); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}
	defer session.Close()

	payload := opts.Command
	if payload != "" {
		payload += opts.Terminator
	}
	if err := session.WriteString(payload); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}
	fmt.Fprintf(out, "%s Sent %d bytes: %s\n", successStyle.Render("✓"), len(payload), printable(opts.Command, 50))

	if opts.Wait <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Wait)
	defer cancel()

	lw := lineWriter{w: out, now: time.Now}
	for ctx.Err() == nil {
		line, ok, err := session.PollLine()
		if err != nil {
			return err
		}
		if ok {
			lw.write(line)
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(opts.PollInterval):
		}
	}
	return nil
}
