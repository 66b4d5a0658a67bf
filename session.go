package serialterm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// DefaultPollInterval matches the refresh timer the console runs on.
	DefaultPollInterval = 10 * time.Millisecond

	readChunkSize = 1024
)

// Session owns at most one open serial connection. It is either Closed (the
// initial state) or Open.
//
// All access to the underlying handle is serialised, so a polling goroutine
// and a writer goroutine may share a Session.
type Session struct {
	opener   Opener
	notifier Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	port    Port
	cfg     Config
	pending []byte
	readBuf []byte
	// discarding is set while skipping the rest of a dropped overlong line.
	discarding bool

	open  atomic.Bool
	stats sessionStats
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOpener replaces the OS backend used by Open.
func WithOpener(o Opener) SessionOption {
	return func(s *Session) { s.opener = o }
}

// WithNotifier sets where session events go.
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession returns a Closed session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		opener:   OpenSystemPort,
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
		readBuf:  make([]byte, readChunkSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsOpen reports whether the session currently holds a handle.
func (s *Session) IsOpen() bool {
	return s.open.Load()
}

// Config returns the configuration of the open connection.
func (s *Session) Config() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return Config{}, false
	}
	return s.cfg, true
}

// Open acquires cfg.PortName. It fails with ErrAlreadyOpen if the session is
// already open, leaving the existing connection untouched. Any other failure
// is an *OpenError and leaves the session Closed.
func (s *Session) Open(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyOpen
	}

	if err := cfg.Validate(); err != nil {
		return &OpenError{Port: cfg.PortName, Reason: OpenFailureInvalidConfig, Err: err}
	}

	p, err := s.opener(cfg)
	if err != nil {
		oe := &OpenError{Port: cfg.PortName, Reason: classifyOpenError(err), Err: err}
		s.logger.Warn().Err(err).Str("port", cfg.PortName).Stringer("reason", oe.Reason).Msg("open failed")
		return oe
	}
	if p == nil {
		return &OpenError{Port: cfg.PortName, Reason: OpenFailureOther, Err: errors.New("backend returned no port")}
	}

	s.port = p
	s.cfg = cfg
	s.pending = s.pending[:0]
	s.discarding = false
	s.open.Store(true)

	s.logger.Info().Str("port", cfg.PortName).Int("baud", cfg.BaudRate).Msg("connected")
	s.notify(Event{Kind: EventConnected, Port: cfg.PortName})
	return nil
}

// Close releases the handle. Closing a Closed session is a no-op. Buffered,
// unterminated data is discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// closeLocked assumes the caller holds s.mu.
func (s *Session) closeLocked() error {
	p := s.port
	if p == nil {
		return nil
	}
	name := s.cfg.PortName

	s.port = nil
	s.cfg = Config{}
	s.pending = s.pending[:0]
	s.discarding = false
	s.open.Store(false)

	err := p.Close()
	if err != nil {
		s.logger.Warn().Err(err).Str("port", name).Msg("closing port")
	}
	s.logger.Info().Str("port", name).Msg("disconnected")
	s.notify(Event{Kind: EventDisconnected, Port: name})
	return err
}

// fail tears down the session after a fatal I/O fault.
func (s *Session) fail(err error) {
	name := s.cfg.PortName
	s.logger.Error().Err(err).Str("port", name).Msg("serial handle failed")
	_ = s.closeLocked()
	s.notify(Event{Kind: EventError, Port: name, Err: err})
}

// WriteString writes command as UTF-8 bytes. See Write.
func (s *Session) WriteString(command string) error {
	return s.Write([]byte(command))
}

// Write transmits command verbatim; no terminator is added. Local
// precondition failures (ErrNotConnected, ErrEmptyCommand) never touch the
// port. OS faults and short writes are reported as *WriteError.
func (s *Session) Write(command []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNotConnected
	}
	if len(command) == 0 {
		return ErrEmptyCommand
	}

	name := s.cfg.PortName
	n, err := s.port.Write(command)
	if n > 0 {
		s.stats.bytesWritten.Add(int64(n))
	}
	if err != nil {
		werr := &WriteError{Port: name, Written: n, Total: len(command), Err: err}
		if isHandleDead(err) {
			s.fail(werr)
		} else {
			s.logger.Warn().Err(err).Str("port", name).Msg("write failed")
			s.notify(Event{Kind: EventError, Port: name, Err: werr})
		}
		return werr
	}
	if n < len(command) {
		werr := &WriteError{Port: name, Written: n, Total: len(command), Err: ErrPartialWrite}
		s.logger.Warn().Int("written", n).Int("total", len(command)).Str("port", name).Msg("partial write")
		s.notify(Event{Kind: EventError, Port: name, Err: werr})
		return werr
	}

	s.stats.commandsSent.Inc()
	s.logger.Debug().Str("port", name).Int("bytes", n).Msg("command sent")
	s.notify(Event{Kind: EventCommandSent, Port: name, Command: append([]byte(nil), command...)})
	return nil
}

// PollLine returns the next complete line received, without its terminator.
// It never blocks. ok is false when no complete line is buffered yet, and
// always false on a Closed session. A read fault closes the session and is
// returned as *ReadError.
func (s *Session) PollLine() (line string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return "", false, nil
	}

	if line, ok := s.nextLine(); ok {
		return line, true, nil
	}

	n, rerr := s.port.Read(s.readBuf)
	if n > 0 {
		s.stats.bytesRead.Add(int64(n))
		s.pending = append(s.pending, s.readBuf[:n]...)
	}
	if rerr != nil {
		re := &ReadError{Port: s.cfg.PortName, Err: rerr}
		s.fail(re)
		return "", false, re
	}

	line, ok = s.nextLine()
	if !ok {
		s.enforceLineLimit()
	}
	return line, ok, nil
}

// nextLine pops one terminated line off the pending buffer. Lines longer
// than MaxLineLength are dropped whole, however they were split across reads.
func (s *Session) nextLine() (string, bool) {
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			if s.discarding {
				s.pending = s.pending[:0]
			}
			return "", false
		}

		raw := bytes.TrimSuffix(s.pending[:idx], []byte{'\r'})
		rest := s.pending[idx+1:]

		if s.discarding {
			s.discarding = false
			s.pending = append(s.pending[:0], rest...)
			continue
		}
		if len(raw) > s.lineLimit() {
			s.dropLine(len(raw))
			s.pending = append(s.pending[:0], rest...)
			continue
		}

		line := strings.ToValidUTF8(string(raw), "\uFFFD")
		s.pending = append(s.pending[:0], rest...)

		s.stats.linesReceived.Inc()
		s.notify(Event{Kind: EventLineReceived, Port: s.cfg.PortName, Line: line})
		return line, true
	}
}

// enforceLineLimit drops an unterminated line once it outgrows MaxLineLength
// and skips its remainder up to the next terminator.
func (s *Session) enforceLineLimit() {
	if s.discarding {
		s.pending = s.pending[:0]
		return
	}
	n := len(bytes.TrimSuffix(s.pending, []byte{'\r'}))
	if n <= s.lineLimit() {
		return
	}
	s.dropLine(n)
	s.pending = s.pending[:0]
	s.discarding = true
}

func (s *Session) lineLimit() int {
	if s.cfg.MaxLineLength <= 0 {
		return DefaultMaxLineLength
	}
	return s.cfg.MaxLineLength
}

func (s *Session) dropLine(n int) {
	s.logger.Warn().Int("bytes", n).Str("port", s.cfg.PortName).Msg("dropping overlong line")
	s.stats.linesDropped.Inc()
}

// Poll drives PollLine every interval until ctx is done or the session is
// closed, delivering lines as EventLineReceived through the notifier. It
// returns the *ReadError if the connection fails.
func (s *Session) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.IsOpen() {
			return nil
		}
		for {
			_, ok, err := s.PollLine()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}
}

func (s *Session) notify(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.notifier.Notify(e)
}
