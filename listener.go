package apix

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// defaultBacklog is how many connections the accept loop holds before
// WaitEvent announces them.
const defaultBacklog = 16

// Listener is a listening stream. It reports each incoming connection as
// EventAcceptReady; Accept then hands it out as a Stream.
type Listener struct {
	listener net.Listener
	addr     string
	logger   Logger
	opts     options

	incoming chan net.Conn

	mu    sync.Mutex
	ready []net.Conn // announced but not yet accepted

	streams *xsync.MapOf[uint64, *Stream]
	nextID  atomic.Uint64

	closed   atomic.Bool
	shutdown chan struct{}
	stopped  chan struct{}
}

// Listen binds addr on network ("unix", "tcp") and starts accepting in
// the background. The options are applied to every accepted stream.
func Listen(ctx context.Context, network, addr string, opt ...Option) (*Listener, error) {
	opts := newOptions(opt)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, opError("listen", addr, ErrConnection, err)
	}

	l := &Listener{
		listener: ln,
		addr:     addr,
		logger:   opts.logger,
		opts:     opts,
		incoming: make(chan net.Conn, defaultBacklog),
		streams:  xsync.NewMapOf[uint64, *Stream](),
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	l.logger.Info("listener started", "network", network, "addr", ln.Addr())
	go l.acceptLoop()
	return l, nil
}

// OpenUnixServer listens on a unix domain socket at path.
func OpenUnixServer(ctx context.Context, path string, opt ...Option) (*Listener, error) {
	return Listen(ctx, "unix", path, opt...)
}

// OpenTCPServer listens on a TCP address such as "127.0.0.1:0".
func OpenTCPServer(ctx context.Context, addr string, opt ...Option) (*Listener, error) {
	return Listen(ctx, "tcp", addr, opt...)
}

func (l *Listener) acceptLoop() {
	defer close(l.stopped)

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				l.logger.Info("listener stopped", "addr", l.addr)
				return
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			l.logger.Error("accept error", "addr", l.addr, "error", err)
			return
		}

		l.logger.Debug("accepted connection", "addr", l.addr, "remote_addr", conn.RemoteAddr())
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		select {
		case l.incoming <- conn:
		case <-l.shutdown:
			_ = conn.Close()
			return
		}
	}
}

// WaitEvent blocks until a connection is pending and returns
// EventAcceptReady. Timeout and cancellation behave as on Stream.
func (l *Listener) WaitEvent(ctx context.Context) (EventKind, error) {
	if l.closed.Load() {
		return 0, ErrConnectionClosed
	}

	var timeout <-chan time.Time
	if l.opts.waitTimeout > 0 {
		timer := time.NewTimer(l.opts.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case conn := <-l.incoming:
		l.mu.Lock()
		l.ready = append(l.ready, conn)
		l.mu.Unlock()
		return EventAcceptReady, nil
	case <-l.shutdown:
		return 0, ErrConnectionClosed
	case <-timeout:
		return 0, ErrWaitTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Accept returns the oldest announced connection as an open Stream whose
// first event is EventOpened.
func (l *Listener) Accept() (*Stream, error) {
	if l.closed.Load() {
		return nil, ErrConnectionClosed
	}

	l.mu.Lock()
	if len(l.ready) == 0 {
		l.mu.Unlock()
		return nil, ErrNoPendingConn
	}
	conn := l.ready[0]
	l.ready = l.ready[1:]
	l.mu.Unlock()

	id := l.nextID.Add(1)
	s := newStream(conn, l.addr, TypeAccept, l.opts)
	s.onClose = func() {
		l.streams.Delete(id)
	}
	l.streams.Store(id, s)
	s.start()

	l.logger.Debug("stream accepted", "addr", l.addr, "id", id, "streams", l.streams.Size())
	return s, nil
}

// Len returns the number of accepted streams that are still open.
func (l *Listener) Len() int {
	return l.streams.Size()
}

// Close stops accepting and closes every accepted stream.
// A unix socket file is removed. Safe to call multiple times.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}

	close(l.shutdown)
	err := l.listener.Close()
	<-l.stopped

	l.mu.Lock()
	pending := l.ready
	l.ready = nil
	l.mu.Unlock()
	for _, c := range pending {
		_ = c.Close()
	}
drain:
	for {
		select {
		case c := <-l.incoming:
			_ = c.Close()
		default:
			break drain
		}
	}

	var accepted []*Stream
	l.streams.Range(func(_ uint64, s *Stream) bool {
		accepted = append(accepted, s)
		return true
	})
	for _, s := range accepted {
		_ = s.Close()
	}

	l.logger.Info("listener closed", "addr", l.addr, "streams", len(accepted))

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return opError("close", l.addr, ErrIO, err)
	}
	return nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}
