package serialterm

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	bugst "go.bug.st/serial"
)

// Predefined error types for robust error handling
var (
	ErrAlreadyOpen     = errors.New("serial session already open")
	ErrNotConnected    = errors.New("serial session not connected")
	ErrEmptyCommand    = errors.New("command is empty")
	ErrPartialWrite    = errors.New("partial write: not all bytes written")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")
)

// OpenFailure classifies why a port could not be opened.
type OpenFailure int

const (
	OpenFailureOther OpenFailure = iota
	OpenFailureBusy
	OpenFailureNotFound
	OpenFailurePermissionDenied
	OpenFailureInvalidConfig
)

func (f OpenFailure) String() string {
	switch f {
	case OpenFailureBusy:
		return "busy"
	case OpenFailureNotFound:
		return "not found"
	case OpenFailurePermissionDenied:
		return "permission denied"
	case OpenFailureInvalidConfig:
		return "invalid config"
	default:
		return "other"
	}
}

// OpenError is returned by Session.Open when the port could not be acquired.
// The session is always left Closed.
type OpenError struct {
	Port   string
	Reason OpenFailure
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// WriteError reports an OS-level fault, or a short write, while transmitting
// a command.
type WriteError struct {
	Port    string
	Written int
	Total   int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (%d/%d bytes): %v", e.Port, e.Written, e.Total, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a read fault. Read faults are fatal to the session.
type ReadError struct {
	Port string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Port, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// classifyOpenError maps backend errors onto an OpenFailure.
func classifyOpenError(err error) OpenFailure {
	var portErr *bugst.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case bugst.PortBusy:
			return OpenFailureBusy
		case bugst.PortNotFound:
			return OpenFailureNotFound
		case bugst.PermissionDenied:
			return OpenFailurePermissionDenied
		case bugst.InvalidSpeed, bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits:
			return OpenFailureInvalidConfig
		}
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidBaudRate):
		return OpenFailureInvalidConfig
	case errors.Is(err, fs.ErrNotExist):
		return OpenFailureNotFound
	case errors.Is(err, fs.ErrPermission):
		return OpenFailurePermissionDenied
	case errors.Is(err, syscall.EBUSY):
		return OpenFailureBusy
	}
	return OpenFailureOther
}

// isHandleDead reports whether err means the OS handle is no longer usable.
func isHandleDead(err error) bool {
	var portErr *bugst.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == bugst.PortClosed
	}
	return errors.Is(err, fs.ErrClosed) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.ENXIO) || errors.Is(err, syscall.ENODEV)
}
