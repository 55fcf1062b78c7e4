package client

import (
	"log/slog"
	"os"
	"time"

	"github.com/Zereker/apix"
	"github.com/Zereker/apix/srrp"
)

const (
	// DefaultKind is the kind tag of the handshake frame.
	DefaultKind = "ff01"
	// DefaultExitToken is the text that ends a session.
	DefaultExitToken = "exit"
	// DefaultMaxPending caps undecoded bytes kept between events (1MB).
	DefaultMaxPending = 1024 * 1024
)

type options struct {
	logger  apix.Logger
	handler Handler

	kind    string
	anchor  string
	payload []byte

	exitToken    string
	syncInterval time.Duration
	maxPending   int
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger. If not set, the default slog logger is used.
func WithLogger(logger apix.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHandler sets the receiver of frames and text.
// Defaults to a print handler on stdout.
func WithHandler(h Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithHandshake sets the control frame sent right after the stream opens.
func WithHandshake(kind, anchor string, payload []byte) Option {
	return func(o *options) {
		o.kind = kind
		o.anchor = anchor
		o.payload = payload
	}
}

// WithExitToken sets the text that makes the client stop.
func WithExitToken(token string) Option {
	return func(o *options) {
		o.exitToken = token
	}
}

// WithSyncInterval resends the handshake whenever the stream has been idle
// for at least d. It only takes effect with a transport wait timeout.
// Zero disables it.
func WithSyncInterval(d time.Duration) Option {
	return func(o *options) {
		o.syncInterval = d
	}
}

// WithMaxPending caps the undecoded bytes kept between events. Beyond the
// cap they are delivered as text.
func WithMaxPending(n int) Option {
	return func(o *options) {
		o.maxPending = n
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.handler == nil {
		opts.handler = NewPrintHandler(os.Stdout)
	}
	if opts.kind == "" {
		opts.kind = DefaultKind
	}
	if opts.anchor == "" {
		opts.anchor = srrp.AnchorSync
	}
	if opts.exitToken == "" {
		opts.exitToken = DefaultExitToken
	}
	if opts.syncInterval < 0 {
		opts.syncInterval = 0
	}
	if opts.maxPending <= 0 {
		opts.maxPending = DefaultMaxPending
	}
	return opts
}
