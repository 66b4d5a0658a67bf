package serialterm

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortDescriptor is an immutable snapshot of one serial device as reported by
// the operating system.
type PortDescriptor struct {
	Name         string
	Description  string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// Enumerator lists the serial devices currently attached.
type Enumerator interface {
	Ports() ([]PortDescriptor, error)
}

// EnumeratorFunc adapts a plain function to Enumerator.
type EnumeratorFunc func() ([]PortDescriptor, error)

func (f EnumeratorFunc) Ports() ([]PortDescriptor, error) { return f() }

// allow tests to override external dependencies
var (
	getDetailedPortsList = enumerator.GetDetailedPortsList
	getPortsList         = bugst.GetPortsList
)

// SystemEnumerator queries the OS through go.bug.st/serial. USB metadata is
// used when available; otherwise it falls back to the plain name list.
type SystemEnumerator struct{}

func (SystemEnumerator) Ports() ([]PortDescriptor, error) {
	details, err := getDetailedPortsList()
	if err == nil {
		ports := make([]PortDescriptor, 0, len(details))
		for _, d := range details {
			if d == nil {
				continue
			}
			ports = append(ports, describeDetails(d))
		}
		return ports, nil
	}

	names, listErr := getPortsList()
	if listErr != nil {
		return nil, listErr
	}
	ports := make([]PortDescriptor, 0, len(names))
	for _, name := range names {
		ports = append(ports, PortDescriptor{
			Name:        name,
			Description: getPortDescription(name),
		})
	}
	return ports, nil
}

func describeDetails(d *enumerator.PortDetails) PortDescriptor {
	desc := PortDescriptor{
		Name:         d.Name,
		IsUSB:        d.IsUSB,
		VID:          d.VID,
		PID:          d.PID,
		SerialNumber: d.SerialNumber,
		Description:  getPortDescription(d.Name),
	}
	if d.IsUSB && d.Product != "" {
		desc.Description = d.Product
	}
	return desc
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(portName string) string {
	name := filepath.Base(portName)
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(name, "cu."), strings.HasPrefix(name, "tty."):
		return "macOS Serial Port"
	case strings.HasPrefix(strings.ToUpper(name), "COM"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}

// Directory answers "which ports can I open" on demand. It holds no state
// between calls.
type Directory struct {
	enum     Enumerator
	notifier Notifier
	logger   zerolog.Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithEnumerator replaces the OS backend, typically with a fake in tests.
func WithEnumerator(e Enumerator) DirectoryOption {
	return func(d *Directory) { d.enum = e }
}

// WithDirectoryNotifier sets where PortsRefreshed events go.
func WithDirectoryNotifier(n Notifier) DirectoryOption {
	return func(d *Directory) { d.notifier = n }
}

// WithDirectoryLogger sets the logger used for enumeration failures.
func WithDirectoryLogger(l zerolog.Logger) DirectoryOption {
	return func(d *Directory) { d.logger = l }
}

func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		enum:     SystemEnumerator{},
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListPorts returns the ports currently attached. It never fails: an
// enumeration error is logged and reported as an empty list.
func (d *Directory) ListPorts() []PortDescriptor {
	ports, err := d.enum.Ports()
	if err != nil {
		d.logger.Warn().Err(err).Msg("enumerating serial ports")
		ports = nil
	}
	if ports == nil {
		ports = []PortDescriptor{}
	}

	d.logger.Debug().Int("count", len(ports)).Msg("serial ports listed")
	d.notifier.Notify(Event{
		Kind:  EventPortsRefreshed,
		Time:  time.Now(),
		Ports: append([]PortDescriptor(nil), ports...),
	})
	return ports
}

// Lookup finds the descriptor for name among the currently attached ports.
func (d *Directory) Lookup(name string) (PortDescriptor, bool) {
	ports, err := d.enum.Ports()
	if err != nil {
		d.logger.Warn().Err(err).Msg("enumerating serial ports")
		return PortDescriptor{}, false
	}
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortDescriptor{}, false
}

// ListPorts returns the serial ports attached to this machine.
func ListPorts() []PortDescriptor {
	return NewDirectory().ListPorts()
}
