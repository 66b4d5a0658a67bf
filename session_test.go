package serialterm

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"testing"
	"time"
)

// fakePort is a non-blocking in-memory Port. Bytes queued with feed are
// returned by Read; onWrite, if set, runs after every successful Write.
type fakePort struct {
	mu       sync.Mutex
	rx       []byte
	writes   [][]byte
	reads    int
	closed   bool
	readErr  error
	writeErr error
	shortBy  int
	onWrite  func(p *fakePort, data []byte)
}

func (f *fakePort) feed(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, data...)
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.writeErr != nil {
		f.mu.Unlock()
		return 0, f.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	f.writes = append(f.writes, cp)
	n := len(p) - f.shortBy
	hook := f.onWrite
	f.mu.Unlock()

	if hook != nil {
		hook(f, cp)
	}
	return n, nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// fakeOpener hands out fp and counts how often it was asked.
type fakeOpener struct {
	port  *fakePort
	err   error
	calls int
}

func (o *fakeOpener) open(cfg Config) (Port, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.port, nil
}

func newTestSession(t *testing.T, fp *fakePort, opts ...SessionOption) (*Session, *fakeOpener) {
	t.Helper()
	op := &fakeOpener{port: fp}
	opts = append([]SessionOption{WithOpener(op.open)}, opts...)
	return NewSession(opts...), op
}

func mustConfig(t *testing.T, port string, opts ...Option) Config {
	t.Helper()
	cfg, err := NewConfig(port, opts...)
	if err != nil {
		t.Fatalf("NewConfig(%q) failed: %v", port, err)
	}
	return cfg
}

func TestSessionOpenClose(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)

	if s.IsOpen() {
		t.Fatal("new session should be Closed")
	}

	for i := 0; i < 3; i++ {
		if err := s.Open(mustConfig(t, "COM3")); err != nil {
			t.Fatalf("Open #%d failed: %v", i, err)
		}
		if !s.IsOpen() {
			t.Fatalf("session should be Open after Open #%d", i)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i, err)
		}
		if s.IsOpen() {
			t.Fatalf("session should be Closed after Close #%d", i)
		}
	}

	if !fp.closed {
		t.Error("handle was not closed")
	}
}

func TestSessionCloseWhenClosedIsNoop(t *testing.T) {
	var events []Event
	s, _ := newTestSession(t, &fakePort{}, WithNotifier(NotifierFunc(func(e Event) {
		events = append(events, e)
	})))

	if err := s.Close(); err != nil {
		t.Errorf("Close on closed session returned %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close on closed session returned %v", err)
	}
	if s.IsOpen() {
		t.Error("session should stay Closed")
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestSessionReopenFailsWithAlreadyOpen(t *testing.T) {
	s, op := newTestSession(t, &fakePort{})

	first := mustConfig(t, "COM3", WithBaudRate(9600))
	if err := s.Open(first); err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	err := s.Open(mustConfig(t, "COM7", WithBaudRate(115200)))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
	if op.calls != 1 {
		t.Errorf("opener called %d times, want 1", op.calls)
	}

	got, ok := s.Config()
	if !ok {
		t.Fatal("Config() reported closed session")
	}
	if got != first {
		t.Errorf("config changed: got %+v, want %+v", got, first)
	}
	if !s.IsOpen() {
		t.Error("session should still be Open")
	}
}

func TestSessionOpenFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason OpenFailure
	}{
		{"missing device", &syscallPathError{syscall.ENOENT}, OpenFailureNotFound},
		{"permission", &syscallPathError{syscall.EACCES}, OpenFailurePermissionDenied},
		{"busy", &syscallPathError{syscall.EBUSY}, OpenFailureBusy},
		{"other", errors.New("boom"), OpenFailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(WithOpener(func(Config) (Port, error) { return nil, tt.err }))

			err := s.Open(mustConfig(t, "/dev/ttyUSB0"))
			var oe *OpenError
			if !errors.As(err, &oe) {
				t.Fatalf("expected *OpenError, got %T: %v", err, err)
			}
			if oe.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", oe.Reason, tt.reason)
			}
			if oe.Port != "/dev/ttyUSB0" {
				t.Errorf("Port = %q", oe.Port)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("OpenError does not wrap the backend error")
			}
			if s.IsOpen() {
				t.Error("session should remain Closed")
			}
		})
	}
}

// syscallPathError mimics *fs.PathError so errors.Is sees the errno.
type syscallPathError struct{ errno syscall.Errno }

func (e *syscallPathError) Error() string { return "open: " + e.errno.Error() }
func (e *syscallPathError) Unwrap() error { return e.errno }

func TestSessionOpenInvalidConfig(t *testing.T) {
	s, op := newTestSession(t, &fakePort{})

	cfg := DefaultConfig()
	cfg.PortName = "COM3"
	cfg.BaudRate = 12345

	err := s.Open(cfg)
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OpenError, got %v", err)
	}
	if oe.Reason != OpenFailureInvalidConfig {
		t.Errorf("Reason = %v, want invalid config", oe.Reason)
	}
	if !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("expected ErrInvalidBaudRate in chain, got %v", err)
	}
	if op.calls != 0 {
		t.Errorf("opener should not be called for invalid config")
	}
}

func TestWriteWhenClosed(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)

	if err := s.WriteString("leader_red_task"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := s.Write(nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected for empty write on closed session, got %v", err)
	}
	if fp.writeCount() != 0 {
		t.Errorf("expected zero writes, got %d", fp.writeCount())
	}
}

func TestWriteEmptyCommand(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	if err := s.WriteString(""); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
	if fp.writeCount() != 0 {
		t.Errorf("expected zero writes, got %d", fp.writeCount())
	}
	if !s.IsOpen() {
		t.Error("session should remain Open")
	}
}

func TestWriteIsVerbatim(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	if err := s.WriteString("follower_toggle_led"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(fp.writes) != 1 || string(fp.writes[0]) != "follower_toggle_led" {
		t.Errorf("unexpected written data: %q", fp.writes)
	}
	if st := s.Stats(); st.CommandsSent != 1 || st.BytesWritten != int64(len("follower_toggle_led")) {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestWritePartial(t *testing.T) {
	fp := &fakePort{shortBy: 3}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	err := s.WriteString("leader_green_task")
	if !errors.Is(err, ErrPartialWrite) {
		t.Fatalf("expected ErrPartialWrite, got %v", err)
	}
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %T", err)
	}
	if we.Written != len("leader_green_task")-3 || we.Total != len("leader_green_task") {
		t.Errorf("unexpected counts: %d/%d", we.Written, we.Total)
	}
	if fp.writeCount() != 1 {
		t.Errorf("partial write must not be retried, got %d writes", fp.writeCount())
	}
	if !s.IsOpen() {
		t.Error("session should remain Open after a partial write")
	}
}

func TestWriteFaults(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOpen bool
	}{
		{"transient", errors.New("resource temporarily unavailable"), true},
		{"dead handle", syscall.EIO, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePort{writeErr: tt.err}
			s, _ := newTestSession(t, fp)
			if err := s.Open(mustConfig(t, "COM3")); err != nil {
				t.Fatal(err)
			}

			err := s.WriteString("leader_yellow_task")
			var we *WriteError
			if !errors.As(err, &we) {
				t.Fatalf("expected *WriteError, got %v", err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("WriteError does not wrap OS error")
			}
			if s.IsOpen() != tt.wantOpen {
				t.Errorf("IsOpen = %v, want %v", s.IsOpen(), tt.wantOpen)
			}
		})
	}
}

func TestPollLineWhenClosed(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)

	line, ok, err := s.PollLine()
	if line != "" || ok || err != nil {
		t.Errorf("PollLine on closed session = (%q, %v, %v)", line, ok, err)
	}
	if fp.reads != 0 {
		t.Errorf("closed session touched the port")
	}
}

func TestPollLinePartialThenComplete(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	fp.feed("ack:lea")
	if _, ok, err := s.PollLine(); ok || err != nil {
		t.Fatalf("partial line delivered early: ok=%v err=%v", ok, err)
	}

	fp.feed("der_red_task\r\nsecond\n")
	line, ok, err := s.PollLine()
	if err != nil || !ok {
		t.Fatalf("expected a line, got ok=%v err=%v", ok, err)
	}
	if line != "ack:leader_red_task" {
		t.Errorf("line = %q", line)
	}

	line, ok, _ = s.PollLine()
	if !ok || line != "second" {
		t.Errorf("second line = %q, ok=%v", line, ok)
	}

	if _, ok, _ := s.PollLine(); ok {
		t.Error("line delivered twice")
	}
}

func TestPollLineEmptyLine(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	fp.feed("\n")
	line, ok, err := s.PollLine()
	if err != nil || !ok || line != "" {
		t.Errorf("PollLine = (%q, %v, %v), want empty line", line, ok, err)
	}
}

func TestPollLineInvalidUTF8(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	fp.feed("ok\xff\n")
	line, ok, _ := s.PollLine()
	if !ok || line != "ok�" {
		t.Errorf("line = %q, ok=%v", line, ok)
	}
}

func TestCloseDiscardsPartialLine(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	fp.feed("stale")
	if _, ok, _ := s.PollLine(); ok {
		t.Fatal("unexpected line")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}
	fp.feed("fresh\n")
	line, ok, _ := s.PollLine()
	if !ok || line != "fresh" {
		t.Errorf("line = %q, want fresh", line)
	}
}

func TestPollLineDropsOverlongLine(t *testing.T) {
	tests := []struct {
		name  string
		reads []string
	}{
		{"single read", []string{"AAAAAAAAAAAAAAAAAAAATAIL\nok\n"}},
		{"split after limit", []string{"AAAAAAAAAAAAAAAAAAAA", "TAIL\nok\n"}},
		{"split three ways", []string{"AAAAAAAAAAAA", "AAAAAAAA", "TAIL", "\nok\n"}},
		{"split before terminator", []string{"AAAAAAAAAAAAAAAAAAAATAIL", "\r\nok\r\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePort{}
			s, _ := newTestSession(t, fp)
			if err := s.Open(mustConfig(t, "COM3", WithMaxLineLength(8))); err != nil {
				t.Fatal(err)
			}

			var lines []string
			for _, chunk := range tt.reads {
				fp.feed(chunk)
				for {
					line, ok, err := s.PollLine()
					if err != nil {
						t.Fatalf("PollLine failed: %v", err)
					}
					if !ok {
						break
					}
					lines = append(lines, line)
				}
			}

			if len(lines) != 1 || lines[0] != "ok" {
				t.Errorf("lines = %q, want [ok]", lines)
			}
			if st := s.Stats(); st.LinesDropped != 1 {
				t.Errorf("LinesDropped = %d, want 1", st.LinesDropped)
			}
		})
	}
}

func TestPollLineKeepsLineAtLimit(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3", WithMaxLineLength(8))); err != nil {
		t.Fatal(err)
	}

	fp.feed("01234567\r")
	if _, ok, _ := s.PollLine(); ok {
		t.Fatal("unterminated line delivered")
	}
	fp.feed("\n")
	line, ok, _ := s.PollLine()
	if !ok || line != "01234567" {
		t.Errorf("line = %q, want 01234567", line)
	}
	if st := s.Stats(); st.LinesDropped != 0 {
		t.Errorf("LinesDropped = %d, want 0", st.LinesDropped)
	}
}

func TestCloseClearsOverlongDiscard(t *testing.T) {
	fp := &fakePort{}
	s, _ := newTestSession(t, fp)
	cfg := mustConfig(t, "COM3", WithMaxLineLength(8))
	if err := s.Open(cfg); err != nil {
		t.Fatal(err)
	}

	fp.feed("0123456789")
	if _, ok, _ := s.PollLine(); ok {
		t.Fatal("overlong partial line delivered")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(cfg); err != nil {
		t.Fatal(err)
	}

	fp.feed("fresh\n")
	line, ok, _ := s.PollLine()
	if !ok || line != "fresh" {
		t.Errorf("line = %q, want fresh", line)
	}
}

func TestPollLineReadErrorIsFatal(t *testing.T) {
	var kinds []EventKind
	fp := &fakePort{}
	s, _ := newTestSession(t, fp, WithNotifier(NotifierFunc(func(e Event) {
		kinds = append(kinds, e.Kind)
	})))
	if err := s.Open(mustConfig(t, "/dev/ttyACM0")); err != nil {
		t.Fatal(err)
	}

	fp.readErr = io.ErrUnexpectedEOF
	_, ok, err := s.PollLine()
	if ok {
		t.Error("no line expected")
	}
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if s.IsOpen() {
		t.Error("session should be Closed after a read fault")
	}
	if !fp.closed {
		t.Error("handle should be released")
	}

	want := []EventKind{EventConnected, EventDisconnected, EventError}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}

	if _, ok, err := s.PollLine(); ok || err != nil {
		t.Errorf("polling a dead session should be a no-op, got ok=%v err=%v", ok, err)
	}
}

func TestRoundTrip(t *testing.T) {
	fp := &fakePort{
		onWrite: func(p *fakePort, data []byte) {
			if string(data) == "leader_red_task" {
				p.feed("ack:leader_red_task\n")
			}
		},
	}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	if err := s.Write([]byte("leader_red_task")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var got string
	for i := 0; i < 10; i++ {
		line, ok, err := s.PollLine()
		if err != nil {
			t.Fatalf("PollLine failed: %v", err)
		}
		if ok {
			got = line
			break
		}
	}
	if got != "ack:leader_red_task" {
		t.Errorf("got %q, want ack:leader_red_task", got)
	}
}

func TestSessionEvents(t *testing.T) {
	ch := make(chan Event, 16)
	fp := &fakePort{}
	s, _ := newTestSession(t, fp, WithNotifier(ChannelNotifier(ch)))

	if err := s.Open(mustConfig(t, "COM7")); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteString("leader_red_task"); err != nil {
		t.Fatal(err)
	}
	fp.feed("ack\n")
	if _, ok, _ := s.PollLine(); !ok {
		t.Fatal("expected a line")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	close(ch)

	var got []Event
	for e := range ch {
		got = append(got, e)
	}
	want := []EventKind{EventConnected, EventCommandSent, EventLineReceived, EventDisconnected}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Kind != want[i] {
			t.Errorf("event %d = %v, want %v", i, e.Kind, want[i])
		}
		if e.Port != "COM7" {
			t.Errorf("event %d port = %q", i, e.Port)
		}
		if e.Time.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
	if got[1].Command == nil || string(got[1].Command) != "leader_red_task" {
		t.Errorf("CommandSent payload = %q", got[1].Command)
	}
	if got[2].Line != "ack" {
		t.Errorf("LineReceived payload = %q", got[2].Line)
	}
}

func TestChannelNotifierNeverBlocks(t *testing.T) {
	ch := make(chan Event, 1)
	n := ChannelNotifier(ch)

	done := make(chan struct{})
	go func() {
		n.Notify(Event{Kind: EventConnected})
		n.Notify(Event{Kind: EventDisconnected})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full channel")
	}
	if e := <-ch; e.Kind != EventConnected {
		t.Errorf("kept event = %v, want connected", e.Kind)
	}
}

func TestPollDeliversLines(t *testing.T) {
	lines := make(chan string, 4)
	fp := &fakePort{}
	s, _ := newTestSession(t, fp, WithNotifier(NotifierFunc(func(e Event) {
		if e.Kind == EventLineReceived {
			lines <- e.Line
		}
	})))
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}
	fp.feed("one\ntwo\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Poll(ctx, time.Millisecond) }()

	for _, want := range []string{"one", "two"} {
		select {
		case got := <-lines:
			if got != want {
				t.Errorf("line = %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Poll returned %v after cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Poll did not stop after cancel")
	}
}

func TestPollStopsOnReadFault(t *testing.T) {
	fp := &fakePort{readErr: io.EOF}
	s, _ := newTestSession(t, fp)
	if err := s.Open(mustConfig(t, "COM3")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.Poll(ctx, time.Millisecond)
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if s.IsOpen() {
		t.Error("session should be Closed")
	}
}

func TestPollReturnsWhenClosed(t *testing.T) {
	s, _ := newTestSession(t, &fakePort{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.Poll(ctx, time.Millisecond); err != nil {
		t.Errorf("Poll on closed session returned %v", err)
	}
	if ctx.Err() != nil {
		t.Error("Poll should return before the context deadline")
	}
}
