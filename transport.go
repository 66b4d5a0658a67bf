package serialterm

import (
	"fmt"

	bugst "go.bug.st/serial"
)

// Port abstracts the subset of go.bug.st/serial.Port the session uses.
// Read must not block: it returns 0, nil when no data is available.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener acquires a Port for a validated Config.
type Opener func(cfg Config) (Port, error)

// allow tests to override external dependencies
var openPort = func(name string, mode *bugst.Mode) (bugst.Port, error) { return bugst.Open(name, mode) }

// OpenSystemPort opens cfg.PortName through go.bug.st/serial with a zero read
// timeout, which makes every Read a non-blocking poll.
func OpenSystemPort(cfg Config) (Port, error) {
	mode, err := modeFor(cfg)
	if err != nil {
		return nil, err
	}

	p, err := openPort(cfg.PortName, mode)
	if err != nil {
		return nil, err
	}

	if err := p.SetReadTimeout(0); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}
	return p, nil
}

func modeFor(cfg Config) (*bugst.Mode, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case ParityNone:
		mode.Parity = bugst.NoParity
	case ParityOdd:
		mode.Parity = bugst.OddParity
	case ParityEven:
		mode.Parity = bugst.EvenParity
	case ParityMark:
		mode.Parity = bugst.MarkParity
	case ParitySpace:
		mode.Parity = bugst.SpaceParity
	default:
		return nil, fmt.Errorf("%w: invalid parity %d", ErrInvalidConfig, cfg.Parity)
	}

	switch cfg.StopBits {
	case 1:
		mode.StopBits = bugst.OneStopBit
	case 2:
		mode.StopBits = bugst.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: invalid stop bits %d", ErrInvalidConfig, cfg.StopBits)
	}

	return mode, nil
}
