package components

import "github.com/allbin/serialterm"

// Selector tracks the port and baud rate the next connect will use.
type Selector struct {
	ports   []serialterm.PortDescriptor
	portIdx int
	rates   []int
	rateIdx int
}

// NewSelector preselects baud if it is one of rates, otherwise the first rate.
func NewSelector(rates []int, baud int) *Selector {
	s := &Selector{rates: rates}
	for i, r := range rates {
		if r == baud {
			s.rateIdx = i
			break
		}
	}
	return s
}

// SetPorts replaces the port list. The current selection is kept when the
// port is still present; otherwise prefer is tried, then the first port.
func (s *Selector) SetPorts(ports []serialterm.PortDescriptor, prefer string) {
	current := ""
	if p, ok := s.Port(); ok {
		current = p.Name
	}
	s.ports = ports
	s.portIdx = 0
	for _, want := range []string{current, prefer} {
		if want == "" {
			continue
		}
		for i, p := range ports {
			if p.Name == want {
				s.portIdx = i
				return
			}
		}
	}
}

func (s *Selector) Ports() []serialterm.PortDescriptor {
	return s.ports
}

// Port returns the selected port, if any ports are known.
func (s *Selector) Port() (serialterm.PortDescriptor, bool) {
	if len(s.ports) == 0 {
		return serialterm.PortDescriptor{}, false
	}
	return s.ports[s.portIdx], true
}

func (s *Selector) Baud() int {
	if len(s.rates) == 0 {
		return serialterm.DefaultBaudRate
	}
	return s.rates[s.rateIdx]
}

func (s *Selector) NextPort() { s.portIdx = step(s.portIdx, len(s.ports), 1) }
func (s *Selector) PrevPort() { s.portIdx = step(s.portIdx, len(s.ports), -1) }
func (s *Selector) NextBaud() { s.rateIdx = step(s.rateIdx, len(s.rates), 1) }
func (s *Selector) PrevBaud() { s.rateIdx = step(s.rateIdx, len(s.rates), -1) }

func step(idx, n, delta int) int {
	if n == 0 {
		return 0
	}
	return ((idx+delta)%n + n) % n
}
