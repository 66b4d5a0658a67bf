// Package config loads CLI and console settings through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialterm"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading the environment, e.g.
// SERIALTERM_BAUD.
const EnvPrefix = "SERIALTERM"

// Viper keys.
const (
	KeyPort          = "port"
	KeyBaud          = "baud"
	KeyDataBits      = "data_bits"
	KeyParity        = "parity"
	KeyStopBits      = "stop_bits"
	KeyPollInterval  = "poll_interval"
	KeyMaxLineLength = "max_line_length"
	KeyLineEnding    = "line_ending"
	KeyClearOnSend   = "clear_on_send"
	KeyAutoScroll    = "auto_scroll"
	KeyWordWrap      = "word_wrap"
	KeyPresets       = "presets"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
)

// Preset is a named canned command.
type Preset struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
}

// DefaultPresets are the commands understood by the reference LED firmware.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "red", Command: "leader_red_task"},
		{Name: "yellow", Command: "leader_yellow_task"},
		{Name: "green", Command: "leader_green_task"},
		{Name: "toggle", Command: "follower_toggle_led"},
	}
}

// LogSettings configures internal/logging.
type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Settings is the merged view of flags, environment and config file.
type Settings struct {
	Port          string        `mapstructure:"port"`
	Baud          int           `mapstructure:"baud"`
	DataBits      int           `mapstructure:"data_bits"`
	Parity        string        `mapstructure:"parity"`
	StopBits      int           `mapstructure:"stop_bits"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxLineLength int           `mapstructure:"max_line_length"`
	LineEnding    string        `mapstructure:"line_ending"`
	ClearOnSend   bool          `mapstructure:"clear_on_send"`
	AutoScroll    bool          `mapstructure:"auto_scroll"`
	WordWrap      bool          `mapstructure:"word_wrap"`
	Presets       []Preset      `mapstructure:"presets"`
	Log           LogSettings   `mapstructure:"log"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaud, serialterm.DefaultBaudRate)
	v.SetDefault(KeyDataBits, 8)
	v.SetDefault(KeyParity, "N")
	v.SetDefault(KeyStopBits, 1)
	v.SetDefault(KeyPollInterval, serialterm.DefaultPollInterval)
	v.SetDefault(KeyMaxLineLength, serialterm.DefaultMaxLineLength)
	v.SetDefault(KeyLineEnding, "none")
	v.SetDefault(KeyClearOnSend, true)
	v.SetDefault(KeyAutoScroll, true)
	v.SetDefault(KeyWordWrap, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")

	presets := make([]map[string]any, 0, 4)
	for _, p := range DefaultPresets() {
		presets = append(presets, map[string]any{"name": p.Name, "command": p.Command})
	}
	v.SetDefault(KeyPresets, presets)
}

// NewViper returns a viper instance with defaults and environment binding.
// If file is non-empty it is used as the config file; otherwise
// $HOME/.serialterm.yaml is searched for.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigType("yaml")
		v.SetConfigName(".serialterm")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads the config file if one exists. A missing default config file
// is not an error; a missing explicit file is.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes v into Settings and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks everything that does not depend on a port being chosen.
func (s Settings) Validate() error {
	if !serialterm.IsStandardBaudRate(s.Baud) {
		return fmt.Errorf("%w: %d", serialterm.ErrInvalidBaudRate, s.Baud)
	}
	if _, err := serialterm.ParseParity(s.Parity); err != nil {
		return err
	}
	if _, err := ParseLineEnding(s.LineEnding); err != nil {
		return err
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", s.PollInterval)
	}
	seen := make(map[string]bool, len(s.Presets))
	for i, p := range s.Presets {
		if p.Name == "" || p.Command == "" {
			return fmt.Errorf("preset %d: name and command are required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Preset looks up a preset by name.
func (s Settings) Preset(name string) (Preset, bool) {
	for _, p := range s.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// SessionConfig converts the serial settings for port into a core Config.
// An empty port falls back to Settings.Port.
func (s Settings) SessionConfig(port string) (serialterm.Config, error) {
	if port == "" {
		port = s.Port
	}
	parity, err := serialterm.ParseParity(s.Parity)
	if err != nil {
		return serialterm.Config{}, err
	}

	opts := []serialterm.Option{
		serialterm.WithBaudRate(s.Baud),
		serialterm.WithDataBits(s.DataBits),
		serialterm.WithStopBits(s.StopBits),
		serialterm.WithParity(parity),
	}
	if s.MaxLineLength > 0 {
		opts = append(opts, serialterm.WithMaxLineLength(s.MaxLineLength))
	}
	return serialterm.NewConfig(port, opts...)
}

// ParseLineEnding maps a line_ending name onto the bytes appended to
// outgoing commands.
func ParseLineEnding(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return "", nil
	case "lf", "\\n":
		return "\n", nil
	case "cr", "\\r":
		return "\r", nil
	case "crlf", "\\r\\n":
		return "\r\n", nil
	}
	return "", fmt.Errorf("unknown line ending %q (want none, lf, cr or crlf)", name)
}

// Terminator returns the configured line ending bytes.
func (s Settings) Terminator() string {
	t, _ := ParseLineEnding(s.LineEnding)
	return t
}
