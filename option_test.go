package apix

import (
	"testing"
	"time"

	"github.com/Zereker/apix/srrp"
)

func TestBufferSizeOption(t *testing.T) {
	opt := BufferSizeOption(100)

	var opts options
	opt(&opts)

	if opts.bufferSize != 100 {
		t.Errorf("bufferSize = %d, want 100", opts.bufferSize)
	}
}

func TestMaxBufferSizeOption(t *testing.T) {
	opt := MaxBufferSizeOption(4096)

	var opts options
	opt(&opts)

	if opts.maxBufferSize != 4096 {
		t.Errorf("maxBufferSize = %d, want 4096", opts.maxBufferSize)
	}
}

func TestHeartbeatOption(t *testing.T) {
	heartbeat := time.Minute * 5
	opt := HeartbeatOption(heartbeat)

	var opts options
	opt(&opts)

	if opts.heartbeat != heartbeat {
		t.Errorf("heartbeat = %v, want %v", opts.heartbeat, heartbeat)
	}
}

func TestWaitTimeoutOption(t *testing.T) {
	opt := WaitTimeoutOption(250 * time.Millisecond)

	var opts options
	opt(&opts)

	if opts.waitTimeout != 250*time.Millisecond {
		t.Errorf("waitTimeout = %v, want 250ms", opts.waitTimeout)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestNewOptions_Defaults(t *testing.T) {
	opts := newOptions(nil)

	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", opts.bufferSize, defaultBufferSize)
	}
	if opts.maxBufferSize != defaultMaxBufferSize {
		t.Errorf("maxBufferSize = %d, want %d", opts.maxBufferSize, defaultMaxBufferSize)
	}
	if opts.readChunk != defaultReadChunk {
		t.Errorf("readChunk = %d, want %d", opts.readChunk, defaultReadChunk)
	}
	if opts.payloadLimit != srrp.PayloadLimit {
		t.Errorf("payloadLimit = %d, want %d", opts.payloadLimit, srrp.PayloadLimit)
	}
	if opts.waitTimeout != 0 {
		t.Errorf("waitTimeout = %v, want 0", opts.waitTimeout)
	}
	if opts.logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestNewOptions_NegativeValues(t *testing.T) {
	opts := newOptions([]Option{
		BufferSizeOption(-1),
		HeartbeatOption(-time.Second),
		WaitTimeoutOption(-time.Second),
		PayloadLimitOption(0),
	})

	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", opts.bufferSize, defaultBufferSize)
	}
	if opts.heartbeat != 0 {
		t.Errorf("heartbeat = %v, want 0", opts.heartbeat)
	}
	if opts.waitTimeout != 0 {
		t.Errorf("waitTimeout = %v, want 0", opts.waitTimeout)
	}
	if opts.payloadLimit != srrp.PayloadLimit {
		t.Errorf("payloadLimit = %d, want %d", opts.payloadLimit, srrp.PayloadLimit)
	}
}

func TestOptions_MultipleOptions(t *testing.T) {
	logger := &mockLogger{}
	heartbeat := time.Second * 45

	opts := newOptions([]Option{
		HeartbeatOption(heartbeat),
		BufferSizeOption(50),
		MaxBufferSizeOption(8192),
		ReadChunkOption(512),
		PayloadLimitOption(64),
		LoggerOption(logger),
	})

	if opts.heartbeat != heartbeat {
		t.Errorf("heartbeat = %v, want %v", opts.heartbeat, heartbeat)
	}
	if opts.bufferSize != 50 {
		t.Errorf("bufferSize = %d, want 50", opts.bufferSize)
	}
	if opts.maxBufferSize != 8192 {
		t.Errorf("maxBufferSize = %d, want 8192", opts.maxBufferSize)
	}
	if opts.readChunk != 512 {
		t.Errorf("readChunk = %d, want 512", opts.readChunk)
	}
	if opts.payloadLimit != 64 {
		t.Errorf("payloadLimit = %d, want 64", opts.payloadLimit)
	}
	if opts.logger != logger {
		t.Error("logger not set")
	}
}
