package serialterm

import "fmt"

// DefaultMaxLineLength bounds how many bytes may accumulate without a line
// terminator before the partial line is dropped.
const DefaultMaxLineLength = 4096

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// ParseParity accepts N/O/E/M/S or the spelled-out names.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "", "N", "n", "none":
		return ParityNone, nil
	case "O", "o", "odd":
		return ParityOdd, nil
	case "E", "e", "even":
		return ParityEven, nil
	case "M", "m", "mark":
		return ParityMark, nil
	case "S", "s", "space":
		return ParitySpace, nil
	}
	return ParityNone, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
}

// Config holds the settings a Session is opened with.
type Config struct {
	PortName      string
	BaudRate      int
	DataBits      int
	StopBits      int
	Parity        Parity
	MaxLineLength int
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:      115200,
		DataBits:      8,
		StopBits:      1,
		Parity:        ParityNone,
		MaxLineLength: DefaultMaxLineLength,
	}
}

// NewConfig builds a Config for portName from DefaultConfig and opts.
func NewConfig(portName string, opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	cfg.PortName = portName
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious issues.
func (c Config) Validate() error {
	if c.PortName == "" {
		return fmt.Errorf("%w: missing port name", ErrInvalidConfig)
	}
	if !IsStandardBaudRate(c.BaudRate) {
		return fmt.Errorf("%w: %d", ErrInvalidBaudRate, c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits must be 5-8, got %d", ErrInvalidConfig, c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: stop bits must be 1 or 2, got %d", ErrInvalidConfig, c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return fmt.Errorf("%w: invalid parity %d", ErrInvalidConfig, c.Parity)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("%w: max line length must be positive, got %d", ErrInvalidConfig, c.MaxLineLength)
	}
	return nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if !IsStandardBaudRate(rate) {
			return fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		c.Parity = parity
		return nil
	}
}

// WithMaxLineLength sets the longest unterminated line kept in the buffer.
func WithMaxLineLength(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.MaxLineLength = n
		return nil
	}
}
