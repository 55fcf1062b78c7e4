// Package apix provides stream connections for SRRP peers.
//
// A Stream owns its socket, a receive buffer filled by a background read
// loop and a queue of lifecycle events. Callers block in WaitEvent, then
// drain received bytes with ReadFromBuffer. A Listener reports incoming
// connections through the same WaitEvent call.
package apix

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/apix/srrp"
)

// Stream types, as shown in logs.
const (
	TypeConnect byte = 'c'
	TypeAccept  byte = 'a'
)

// Stream is one end of an established stream connection.
type Stream struct {
	rawConn net.Conn
	addr    string
	typ     byte
	logger  Logger

	opts options

	rxMu        sync.Mutex
	rxbuf       bytes.Buffer
	dataPending atomic.Bool

	sendMu  sync.Mutex
	sendMsg chan []byte
	events  chan EventKind

	eof     atomic.Bool // Closed event delivered
	closed  atomic.Bool // Close called
	done    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	onClose func()
}

// Dial opens a client stream to addr on the given network ("unix", "tcp").
// The first event reported by WaitEvent is EventOpened.
func Dial(ctx context.Context, network, addr string, opt ...Option) (*Stream, error) {
	opts := newOptions(opt)

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, opError("dial", addr, ErrConnection, err)
	}

	s := newStream(conn, addr, TypeConnect, opts)
	s.start()
	return s, nil
}

// OpenUnixClient dials a unix domain socket at path.
func OpenUnixClient(ctx context.Context, path string, opt ...Option) (*Stream, error) {
	return Dial(ctx, "unix", path, opt...)
}

// OpenTCPClient dials a TCP address such as "127.0.0.1:8080".
func OpenTCPClient(ctx context.Context, addr string, opt ...Option) (*Stream, error) {
	return Dial(ctx, "tcp", addr, opt...)
}

// newStream wraps an established connection.
func newStream(c net.Conn, addr string, typ byte, opts options) *Stream {
	return &Stream{
		rawConn: c,
		addr:    addr,
		typ:     typ,
		logger:  opts.logger,
		opts:    opts,
		sendMsg: make(chan []byte, opts.bufferSize),
		// Opened, Closed and one coalesced DataReady are the most that can
		// be pending at once.
		events:  make(chan EventKind, 4),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start posts EventOpened and launches the read and write loops.
func (s *Stream) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info("stream opened", "addr", s.addr, "type", string(s.typ))
	s.logger.Debug("stream options", "addr", s.addr,
		"buffer_size", s.opts.bufferSize,
		"max_buffer_size", s.opts.maxBufferSize,
		"heartbeat", s.opts.heartbeat,
		"wait_timeout", s.opts.waitTimeout)

	s.post(EventOpened)
	go s.run(ctx)
}

// run blocks until the loops stop, then reports EventClosed unless the
// stream was closed locally.
func (s *Stream) run(ctx context.Context) {
	defer close(s.stopped)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.readLoop()
	})

	group.Go(func() error {
		return s.writeLoop(child)
	})

	// Read blocks on the socket, not on the context.
	group.Go(func() error {
		<-child.Done()
		_ = s.rawConn.Close()
		return nil
	})

	err := group.Wait()

	if s.closed.Load() {
		return
	}

	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Info("stream closed with error", "addr", s.addr, "error", err)
	} else {
		s.logger.Info("stream closed by peer", "addr", s.addr)
	}
	s.post(EventClosed)
}

// post queues an event without blocking.
func (s *Stream) post(ev EventKind) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event dropped", "addr", s.addr, "event", ev)
	}
}

// readLoop moves socket bytes into the receive buffer.
func (s *Stream) readLoop() error {
	buf := make([]byte, s.opts.readChunk)
	for {
		if s.opts.heartbeat > 0 {
			_ = s.rawConn.SetReadDeadline(time.Now().Add(s.opts.heartbeat * 2))
		}

		n, err := s.rawConn.Read(buf)
		if n > 0 {
			if perr := s.push(buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			s.logger.Debug("read error", "addr", s.addr, "error", err)
			return err
		}
	}
}

// push appends to the receive buffer and signals DataReady once per batch.
func (s *Stream) push(b []byte) error {
	s.rxMu.Lock()
	if s.rxbuf.Len()+len(b) > s.opts.maxBufferSize {
		s.rxMu.Unlock()
		s.logger.Warn("receive buffer overflow", "addr", s.addr,
			"buffered", s.rxbuf.Len(), "max_buffer_size", s.opts.maxBufferSize)
		return ErrBufferOverflow
	}
	s.rxbuf.Write(b)
	s.rxMu.Unlock()

	if !s.dataPending.Swap(true) {
		s.post(EventDataReady)
	}
	return nil
}

// writeLoop sends the bytes queued by SendToBuffer and SendFrame.
func (s *Stream) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-s.sendMsg:
			if err := s.write(data); err != nil {
				return err
			}
		}
	}
}

// write sends data to the connection with a deadline.
func (s *Stream) write(data []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.opts.heartbeat > 0 {
		_ = s.rawConn.SetWriteDeadline(time.Now().Add(s.opts.heartbeat * 2))
	}

	if _, err := s.rawConn.Write(data); err != nil {
		s.logger.Debug("write error", "addr", s.addr, "error", err)
		return opError("send", s.addr, ErrIO, err)
	}
	return nil
}

// WaitEvent blocks until the next lifecycle event.
//
// With a zero wait timeout it blocks until an event arrives, the stream is
// closed or ctx is done. With a positive timeout it returns ErrWaitTimeout
// when nothing happened in time.
func (s *Stream) WaitEvent(ctx context.Context) (EventKind, error) {
	if s.closed.Load() {
		return 0, ErrConnectionClosed
	}

	select {
	case ev := <-s.events:
		return s.deliver(ev), nil
	default:
	}

	if s.eof.Load() {
		return 0, ErrConnectionClosed
	}

	var timeout <-chan time.Time
	if s.opts.waitTimeout > 0 {
		timer := time.NewTimer(s.opts.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ev := <-s.events:
		return s.deliver(ev), nil
	case <-s.done:
		return 0, ErrConnectionClosed
	case <-timeout:
		return 0, ErrWaitTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *Stream) deliver(ev EventKind) EventKind {
	switch ev {
	case EventDataReady:
		s.dataPending.Store(false)
	case EventClosed:
		s.eof.Store(true)
	}
	return ev
}

// ReadFromBuffer drains and returns the bytes received so far.
// The result is empty when another reader drained the buffer first.
func (s *Stream) ReadFromBuffer() []byte {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()

	if s.rxbuf.Len() == 0 {
		return nil
	}
	b := make([]byte, s.rxbuf.Len())
	copy(b, s.rxbuf.Bytes())
	s.rxbuf.Reset()
	return b
}

// Buffered returns the number of received bytes not yet read.
func (s *Stream) Buffered() int {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	return s.rxbuf.Len()
}

// Send writes b to the connection and returns once it is written.
// Concurrent sends never interleave.
//
// Returns:
//   - nil: all bytes were written
//   - ErrConnectionClosed: the stream is closed
//   - an *OpError of kind ErrIO: the write failed
func (s *Stream) Send(b []byte) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}
	return s.write(b)
}

// SendToBuffer queues b for the background write loop without blocking
// (fire-and-forget). b is copied.
//
// Returns:
//   - nil: bytes were queued (not yet sent)
//   - ErrBufferFull: the queue is full, bytes were NOT queued
//   - ErrConnectionClosed: the stream is closed
func (s *Stream) SendToBuffer(b []byte) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}

	data := make([]byte, len(b))
	copy(data, b)

	select {
	case s.sendMsg <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendFrame queues f for the write loop, split into fragments when its
// payload exceeds the configured payload limit. It blocks until every
// fragment is queued or ctx is done.
func (s *Stream) SendFrame(ctx context.Context, f *srrp.Frame) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}

	parts, err := srrp.Split(f, s.opts.payloadLimit)
	if err != nil {
		return err
	}
	if len(parts) > 1 {
		s.logger.Debug("split frame", "addr", s.addr, "anchor", f.Anchor, "fragments", len(parts))
	}

	for _, p := range parts {
		select {
		case s.sendMsg <- p.Raw:
		case <-s.done:
			return ErrConnectionClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Accept is only meaningful on a Listener; a stream always returns
// ErrNotListener.
func (s *Stream) Accept() (*Stream, error) {
	return nil, ErrNotListener
}

// Close releases the connection and stops the background loops.
// Safe to call multiple times.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil // already closed
	}

	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	err := s.rawConn.Close()
	<-s.stopped

	if s.onClose != nil {
		s.onClose()
	}
	s.logger.Info("stream closed", "addr", s.addr, "type", string(s.typ))

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return opError("close", s.addr, ErrIO, err)
	}
	return nil
}

// IsClosed returns true if Close has been called.
func (s *Stream) IsClosed() bool {
	return s.closed.Load()
}

// Addr returns the address the stream was opened with.
func (s *Stream) Addr() string {
	return s.addr
}

// Type returns TypeConnect for dialed streams and TypeAccept for streams
// handed out by a Listener.
func (s *Stream) Type() byte {
	return s.typ
}
