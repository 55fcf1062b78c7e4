package apix

import (
	"time"

	"github.com/Zereker/apix/srrp"
)

// options holds the configuration for a stream or listener.
type options struct {
	logger Logger

	bufferSize    int           // length of the SendToBuffer queue
	maxBufferSize int           // cap of the receive buffer
	readChunk     int           // bytes requested per socket read
	heartbeat     time.Duration // read/write deadline is heartbeat * 2, 0 disables
	waitTimeout   time.Duration // 0 blocks WaitEvent indefinitely
	payloadLimit  int           // fragment size for SendFrame
}

// Option is a function that configures stream options.
type Option func(*options)

// Default configuration values.
const (
	// defaultBufferSize is the default length of the send queue.
	defaultBufferSize = 16
	// defaultMaxBufferSize is the default receive buffer cap (1MB).
	defaultMaxBufferSize = 1024 * 1024
	// defaultReadChunk is the default size of a single socket read.
	defaultReadChunk = 4096
)

// BufferSizeOption sets the length of the queue drained by the background
// write loop. A larger queue lets SendToBuffer absorb bursts.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// MaxBufferSizeOption caps the number of received bytes held between
// ReadFromBuffer calls. A stream whose buffer overflows is closed.
func MaxBufferSizeOption(size int) Option {
	return func(o *options) {
		o.maxBufferSize = size
	}
}

// ReadChunkOption sets how many bytes a single socket read may return.
func ReadChunkOption(size int) Option {
	return func(o *options) {
		o.readChunk = size
	}
}

// HeartbeatOption sets the heartbeat interval.
// Reads and writes fail if the peer stays silent for heartbeat * 2.
// Zero, the default, disables deadlines.
func HeartbeatOption(heartbeat time.Duration) Option {
	return func(o *options) {
		o.heartbeat = heartbeat
	}
}

// WaitTimeoutOption bounds how long WaitEvent blocks before returning
// ErrWaitTimeout. Zero, the default, blocks until an event arrives.
func WaitTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = timeout
	}
}

// PayloadLimitOption sets the payload size above which SendFrame splits a
// frame into fragments.
func PayloadLimitOption(limit int) Option {
	return func(o *options) {
		o.payloadLimit = limit
	}
}

// LoggerOption sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}

// checkOptions fills in default values.
func checkOptions(opts *options) {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxBufferSize <= 0 {
		opts.maxBufferSize = defaultMaxBufferSize
	}

	if opts.readChunk <= 0 {
		opts.readChunk = defaultReadChunk
	}

	if opts.heartbeat < 0 {
		opts.heartbeat = 0
	}

	if opts.waitTimeout < 0 {
		opts.waitTimeout = 0
	}

	if opts.payloadLimit <= 0 {
		opts.payloadLimit = srrp.PayloadLimit
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}
