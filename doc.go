// Package serialterm provides a line-oriented serial console core: a port
// directory for discovering devices and a session that owns one connection
// at a time.
//
// # Basic Usage
//
// Pick a port, open a session, then poll for newline-terminated replies:
//
//	ports := serialterm.ListPorts()
//	cfg, err := serialterm.NewConfig(ports[0].Name, serialterm.WithBaudRate(115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := serialterm.NewSession()
//	if err := session.Open(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	_ = session.WriteString("leader_red_task")
//	for {
//	    line, ok, err := session.PollLine()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if ok {
//	        fmt.Println(line)
//	        break
//	    }
//	    time.Sleep(serialterm.DefaultPollInterval)
//	}
//
// # Polling Model
//
// PollLine never blocks. The caller invokes it on a short fixed interval,
// typically from a UI refresh timer, or hands the job to Session.Poll which
// runs the ticker itself and reports lines as events:
//
//	events := make(chan serialterm.Event, 64)
//	session := serialterm.NewSession(
//	    serialterm.WithNotifier(serialterm.ChannelNotifier(events)),
//	)
//	go session.Poll(ctx, serialterm.DefaultPollInterval)
//
// Writes are sent verbatim. The session never appends a line terminator, so
// the caller adds whatever the remote device expects.
//
// # Error Handling
//
// Local precondition failures are sentinel errors:
//
//	var (
//	    ErrAlreadyOpen  // Open called on an open session
//	    ErrNotConnected // Write called on a closed session
//	    ErrEmptyCommand // Write called with no bytes
//	    ErrPartialWrite // the OS accepted fewer bytes than requested
//	)
//
// OS faults are typed: *OpenError (with an OpenFailure reason), *WriteError
// and *ReadError. A read fault, or a write fault on a dead handle, closes the
// session. Use errors.Is and errors.As:
//
//	var oe *serialterm.OpenError
//	if errors.As(err, &oe) && oe.Reason == serialterm.OpenFailureBusy {
//	    // pick a different port
//	}
//
// Nothing in this package retries automatically.
package serialterm
