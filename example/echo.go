package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Zereker/apix"
	"github.com/Zereker/apix/srrp"
)

// peer echoes every frame and text chunk back to its stream. The text
// "bye" makes it answer with "exit" and hang up.
type peer struct {
	stream *apix.Stream
	logger *slog.Logger
	buf    []byte
}

func (p *peer) serve(ctx context.Context) {
	defer p.stream.Close()

	for {
		ev, err := p.stream.WaitEvent(ctx)
		if err != nil {
			p.logger.Info("peer done", "error", err)
			return
		}

		switch ev {
		case apix.EventOpened:
			p.logger.Info("peer opened")
		case apix.EventClosed:
			p.logger.Info("peer closed")
			return
		case apix.EventDataReady:
			p.buf = append(p.buf, p.stream.ReadFromBuffer()...)
			if !p.echo(ctx) {
				return
			}
		}
	}
}

// echo sends back what has been received so far. It returns false once
// the session should end.
func (p *peer) echo(ctx context.Context) bool {
	for len(p.buf) > 0 {
		f, err := srrp.Decode(p.buf)
		if errors.Is(err, srrp.ErrIncomplete) {
			return true
		}
		if err != nil {
			text := p.buf
			p.buf = nil
			if string(bytes.TrimRight(text, "\r\n")) == "bye" {
				_ = p.stream.Send([]byte("exit"))
				return false
			}
			if err := p.stream.SendToBuffer(text); err != nil {
				p.logger.Warn("echo text", "error", err)
			}
			return true
		}

		p.buf = p.buf[f.Len():]
		p.logger.Info("echo frame", "frame", f.String())
		if err := p.stream.SendFrame(ctx, f); err != nil {
			p.logger.Warn("echo frame", "error", err)
			return false
		}
	}
	return true
}

func main() {
	path := "/tmp/apix"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := apix.OpenUnixServer(ctx, path)
	if err != nil {
		slog.Error("failed to listen", "error", err)
		return
	}
	defer l.Close()

	slog.Info("echo peer started", "addr", path)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		ev, err := l.WaitEvent(ctx)
		if err != nil {
			slog.Info("shutting down", "error", err)
			return
		}
		if ev != apix.EventAcceptReady {
			continue
		}

		s, err := l.Accept()
		if err != nil {
			slog.Warn("accept", "error", err)
			continue
		}

		p := &peer{stream: s, logger: slog.With("stream", l.Len())}
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.serve(ctx)
		}()
	}
}
