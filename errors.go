package apix

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrConnection is returned when a stream cannot be opened.
	ErrConnection = errors.New("apix: connection error")
	// ErrIO is returned when bytes cannot be written to an open stream.
	ErrIO = errors.New("apix: io error")
)

var (
	// ErrConnectionClosed is returned when operating on a closed stream.
	ErrConnectionClosed = errors.New("apix: connection closed")
	// ErrWaitTimeout is returned by WaitEvent when the configured wait
	// timeout elapses without an event.
	ErrWaitTimeout = errors.New("apix: wait timeout")
	// ErrNotListener is returned by Accept on a stream that does not listen.
	ErrNotListener = errors.New("apix: not a listening stream")
	// ErrNoPendingConn is returned by Listener.Accept when no AcceptReady
	// event announced a connection.
	ErrNoPendingConn = errors.New("apix: no pending connection")
	// ErrBufferOverflow is returned when the receive buffer exceeds its cap.
	ErrBufferOverflow = errors.New("apix: receive buffer overflow")
)

// ErrBufferFull is returned by SendToBuffer when the send queue is full and
// the bytes were NOT queued. Use Send to block until the bytes are written.
var ErrBufferFull = errors.New("apix: send buffer full")

// OpError describes a failed stream operation. It matches both its Kind and
// the underlying error.
type OpError struct {
	Op   string
	Addr string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Addr, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func opError(op, addr string, kind, err error) error {
	return &OpError{Op: op, Addr: addr, Kind: kind, Err: errors.WithStack(err)}
}
