// Package client runs one SRRP session over an apix stream.
//
// A Client opens the transport, sends the handshake control frame and then
// dispatches stream events until the peer closes the stream or sends the
// exit token. Frames go to Handler.OnFrame, anything else to Handler.OnText.
package client

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/apix"
	"github.com/Zereker/apix/srrp"
)

var (
	// ErrUnknownEvent is returned by Run when the transport reports an event
	// kind the client does not know.
	ErrUnknownEvent = errors.New("client: unknown event")
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("client: already started")
)

// Transport is the part of *apix.Stream the client uses.
type Transport interface {
	Send(b []byte) error
	WaitEvent(ctx context.Context) (apix.EventKind, error)
	ReadFromBuffer() []byte
	Accept() (*apix.Stream, error)
	Close() error
}

var _ Transport = (*apix.Stream)(nil)

// DialFunc opens the transport for a session.
type DialFunc func(ctx context.Context) (Transport, error)

// Dialer returns a DialFunc that opens an apix stream.
func Dialer(network, addr string, opt ...apix.Option) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		s, err := apix.Dial(ctx, network, addr, opt...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Client is a single session. It is not reusable.
type Client struct {
	dial    DialFunc
	opts    options
	logger  apix.Logger
	handler Handler

	state   atomic.Int32
	started atomic.Bool

	// owned by the Run goroutine
	running   bool
	pending   []byte
	unfin     *srrp.Frame
	handshake []byte
	lastSync  time.Time
}

// New creates a client that opens its transport with dial.
func New(dial DialFunc, opt ...Option) *Client {
	opts := newOptions(opt)
	return &Client{
		dial:    dial,
		opts:    opts,
		logger:  opts.logger,
		handler: opts.handler,
	}
}

// State returns the current lifecycle state. Safe for concurrent use.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("client state", "state", s.String())
}

// Run opens the transport, sends the handshake and processes events until
// the session ends. The transport is closed exactly once on every path
// after a successful open.
//
// A session ended by the peer (Closed event or exit token) returns nil.
// ctx cancellation interrupts WaitEvent and is returned wrapped.
func (c *Client) Run(ctx context.Context) (err error) {
	if c.started.Swap(true) {
		return ErrAlreadyStarted
	}

	c.handshake, err = srrp.EncodeCtrl(c.opts.kind, c.opts.anchor, c.opts.payload)
	if err != nil {
		c.setState(StateClosed)
		return errors.Wrap(err, "client: build handshake")
	}

	t, err := c.dial(ctx)
	if err != nil {
		c.setState(StateClosed)
		return errors.Wrap(err, "client: open transport")
	}

	defer func() {
		c.setState(StateDraining)
		if cerr := t.Close(); cerr != nil {
			c.logger.Warn("close transport", "error", cerr)
			if err == nil {
				err = errors.Wrap(cerr, "client: close transport")
			}
		}
		c.setState(StateClosed)
		c.logger.Info("client stopped", "pending", len(c.pending))
	}()

	if err = c.sync(t); err != nil {
		return errors.Wrap(err, "client: send handshake")
	}

	c.setState(StateRunning)
	c.running = true

	for c.running {
		ev, werr := t.WaitEvent(ctx)
		if werr != nil {
			if errors.Is(werr, apix.ErrWaitTimeout) {
				if err = c.idle(t); err != nil {
					return err
				}
				continue
			}
			return errors.Wrap(werr, "client: wait event")
		}

		if err = c.dispatch(t, ev); err != nil {
			return err
		}
	}
	return nil
}

// sync sends the handshake control frame.
func (c *Client) sync(t Transport) error {
	if err := t.Send(c.handshake); err != nil {
		return err
	}
	c.lastSync = time.Now()
	syncsTotal.Inc()
	c.logger.Debug("handshake sent", "kind", c.opts.kind, "anchor", c.opts.anchor)
	return nil
}

// idle runs on every wait timeout.
func (c *Client) idle(t Transport) error {
	if c.opts.syncInterval <= 0 || time.Since(c.lastSync) < c.opts.syncInterval {
		return nil
	}
	if err := c.sync(t); err != nil {
		return errors.Wrap(err, "client: resync")
	}
	return nil
}

func (c *Client) dispatch(t Transport, ev apix.EventKind) error {
	eventCounter(ev).Inc()

	switch ev {
	case apix.EventOpened:
		c.logger.Info("stream opened")

	case apix.EventClosed:
		c.logger.Info("stream closed by peer")
		c.running = false

	case apix.EventAcceptReady:
		s, err := t.Accept()
		c.logger.Debug("accept ready ignored", "error", err)
		if s != nil {
			_ = s.Close()
		}

	case apix.EventDataReady:
		b := t.ReadFromBuffer()
		if len(b) == 0 {
			return nil
		}
		bytesTotal.Add(len(b))
		held := len(c.pending)
		c.pending = append(c.pending, b...)
		c.extract(held)

	default:
		c.logger.Error("unknown event", "event", ev.String())
		return errors.Wrapf(ErrUnknownEvent, "%s", ev)
	}
	return nil
}

// extract delivers every complete frame in pending and hands the bytes
// between frames to onText. held is the number of leading bytes kept from
// earlier reads as an incomplete frame.
func (c *Client) extract(held int) {
	for len(c.pending) > 0 && c.running {
		f, err := srrp.Decode(c.pending)
		switch {
		case err == nil:
			c.consume(f.Len(), &held)
			c.onFrame(f)

		case errors.Is(err, srrp.ErrIncomplete):
			if len(c.pending) > c.opts.maxPending {
				c.logger.Warn("pending bytes over limit, flushing as text",
					"bytes", len(c.pending), "max_pending", c.opts.maxPending)
				c.onText(c.pending)
				c.pending = nil
			}
			return

		default:
			// text runs up to the next possible frame start; a held
			// prefix that the new bytes disproved is text on its own
			off := srrp.NextFrameOffset(c.pending)
			if held > 0 && held < off {
				off = held
			}
			text := c.pending[:off]
			c.consume(off, &held)
			c.onText(text)
		}
	}
	if len(c.pending) == 0 {
		c.pending = nil
	}
}

// consume drops n bytes from the head of pending.
func (c *Client) consume(n int, held *int) {
	c.pending = c.pending[n:]
	*held -= n
	if *held < 0 {
		*held = 0
	}
}

func (c *Client) onFrame(f *srrp.Frame) {
	if f.Leader == srrp.LeaderCtrl {
		switch f.Anchor {
		case srrp.AnchorNodeIDZero:
			c.logger.Warn("peer reports node id zero", "kind", f.Kind)
		case srrp.AnchorNodeIDDup:
			c.logger.Warn("peer reports duplicate node id", "kind", f.Kind)
		}
	}

	if !f.IsFin() {
		fragmentsTotal.Inc()
	}
	msg := c.reassemble(f)
	if msg == nil {
		return
	}

	framesTotal.Inc()
	c.logger.Debug("frame received", "leader", msg.Leader.String(), "anchor", msg.Anchor, "bytes", msg.Length())
	c.handler.OnFrame(msg)
}

// reassemble joins fragments. It returns nil while a message is unfinished.
func (c *Client) reassemble(f *srrp.Frame) *srrp.Frame {
	if c.unfin == nil {
		if f.IsFin() {
			return f
		}
		c.unfin = f
		return nil
	}

	joined, err := srrp.Cat(c.unfin, f)
	if err != nil {
		c.logger.Warn("dropping unfinished message", "anchor", c.unfin.Anchor, "error", err)
		c.unfin = nil
		return c.reassemble(f)
	}
	if !joined.IsFin() {
		c.unfin = joined
		return nil
	}
	c.unfin = nil
	return joined
}

func (c *Client) onText(b []byte) {
	if string(bytes.TrimRight(b, "\r\n")) == c.opts.exitToken {
		c.logger.Info("exit token received")
		c.running = false
		return
	}

	textsTotal.Inc()
	c.handler.OnText(bytes.Clone(b))
}
