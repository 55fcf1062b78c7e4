package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/Zereker/apix/srrp"
)

// Handler receives what the client decodes from the stream.
type Handler interface {
	// OnFrame is called for each complete message. Fragments are joined
	// before delivery.
	OnFrame(f *srrp.Frame)
	// OnText is called with bytes that are not SRRP frames.
	OnText(b []byte)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Frame func(f *srrp.Frame)
	Text  func(b []byte)
}

func (h HandlerFuncs) OnFrame(f *srrp.Frame) {
	if h.Frame != nil {
		h.Frame(f)
	}
}

func (h HandlerFuncs) OnText(b []byte) {
	if h.Text != nil {
		h.Text(b)
	}
}

type printHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrintHandler returns a Handler that writes every frame as
// "recv srrp: <raw>" and every text chunk verbatim to w.
func NewPrintHandler(w io.Writer) Handler {
	return &printHandler{w: w}
}

func (h *printHandler) OnFrame(f *srrp.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.w, "recv srrp: %s\n", f.Raw)
}

func (h *printHandler) OnText(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w.Write(b)
}
