package serialterm

import "time"

// EventKind identifies a discrete transition reported to the presentation
// layer.
type EventKind int

const (
	EventPortsRefreshed EventKind = iota
	EventConnected
	EventDisconnected
	EventLineReceived
	EventCommandSent
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPortsRefreshed:
		return "ports-refreshed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventLineReceived:
		return "line-received"
	case EventCommandSent:
		return "command-sent"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event carries the payload for one EventKind. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Port    string
	Line    string
	Command []byte
	Ports   []PortDescriptor
	Err     error
}

// Notifier receives events from a Directory or Session. Notify is called
// while the session lock is held, so implementations must not call back
// into the session.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// ChannelNotifier forwards events to ch without blocking. Events are dropped
// when ch is full.
type ChannelNotifier chan<- Event

func (c ChannelNotifier) Notify(e Event) {
	select {
	case c <- e:
	default:
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
