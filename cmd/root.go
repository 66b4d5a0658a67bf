/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/allbin/serialterm/internal/config"
	"github.com/allbin/serialterm/internal/logging"
)

var (
	cfgFile   string
	settings  config.Settings
	logger    = zerolog.Nop()
	logCloser io.Closer
)

// flagKeys maps command-line flags onto configuration keys. Flags only
// override the config file and environment when set explicitly.
var flagKeys = map[string]string{
	"port":        config.KeyPort,
	"baud":        config.KeyBaud,
	"log-level":   config.KeyLogLevel,
	"log-file":    config.KeyLogFile,
	"line-ending": config.KeyLineEnding,
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialterm",
	Short: "Line-oriented serial console",
	Long: `serialterm talks to newline-terminated text devices over a serial port.

Pick a port, open it at a standard baud rate, send commands and read the
replies one line at a time. Use the interactive console for day-to-day work
or the one-shot subcommands for scripting.

Settings are read from $HOME/.serialterm.yaml (or --config), then
SERIALTERM_* environment variables, then flags.

Example usage:
  serialterm list --table
  serialterm send leader_red_task -p /dev/ttyUSB0 --wait 1s
  serialterm console`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialterm.yaml)")
	rootCmd.PersistentFlags().StringP("port", "p", "", "Serial port to use")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON logs to this file instead of stderr")
}

// setup loads settings and builds the logger for cmd.
func setup(cmd *cobra.Command) error {
	v := config.NewViper(cfgFile)

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if err := config.ReadFile(v); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s

	// The console owns the terminal, so it only ever logs to a file.
	l, closer, err := logging.New(logging.Options{
		Level:   s.Log.Level,
		File:    s.Log.File,
		Console: cmd.Name() != consoleCmd.Name(),
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}
	return nil
}

// portArg returns the port named on the command line, falling back to the
// configured one.
func portArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return settings.Port
}
