// Package srrp implements the SRRP framing used to multiplex control and data
// messages over a single byte stream.
//
// A frame is a 24 byte text header, an anchor path terminated by '?', an
// opaque payload and a 5 byte trailer (NUL + CRC16 in hex):
//
//	=1#0023#ff01#0000#0000#/sync?\x00<crc16>
//
// The total length sits at a fixed offset, so a reader knows how many bytes a
// frame consumes as soon as the first 8 bytes have arrived.
package srrp

import (
	"fmt"
	"strconv"
)

// Leader is the frame class.
type Leader byte

const (
	LeaderCtrl        Leader = '=' // node control, e.g. /sync
	LeaderRequest     Leader = '>' // request to a destination node
	LeaderResponse    Leader = '<' // response carrying the request CRC
	LeaderSubscribe   Leader = '+' // subscribe to an anchor
	LeaderUnsubscribe Leader = '-' // cancel a subscription
	LeaderPublish     Leader = '@' // publish to subscribers of an anchor
)

// Valid reports whether l is a known frame class.
func (l Leader) Valid() bool {
	switch l {
	case LeaderCtrl, LeaderRequest, LeaderResponse,
		LeaderSubscribe, LeaderUnsubscribe, LeaderPublish:
		return true
	}
	return false
}

func (l Leader) String() string {
	switch l {
	case LeaderCtrl:
		return "ctrl"
	case LeaderRequest:
		return "request"
	case LeaderResponse:
		return "response"
	case LeaderSubscribe:
		return "subscribe"
	case LeaderUnsubscribe:
		return "unsubscribe"
	case LeaderPublish:
		return "publish"
	default:
		return fmt.Sprintf("leader(%q)", byte(l))
	}
}

// Fin markers.
const (
	Fin0 byte = '0'
	Fin1 byte = '1'
)

const (
	version byte = '1'

	// HeaderLen is the size of the fixed header, up to and including the
	// '#' in front of the anchor.
	HeaderLen = 24
	// TrailerLen is the NUL separator plus 4 hex digits of CRC16.
	TrailerLen = 5
	// MaxFrameLen is the largest length the header can express.
	MaxFrameLen = 0xffff
	// PayloadLimit is the default fragment size used by Split.
	PayloadLimit = 1400

	// ZeroTag is the tag written for an unused kind or destination.
	ZeroTag = "0000"
)

// Well-known control anchors.
const (
	AnchorSync       = "/sync"
	AnchorNodeIDZero = "/sync/nodeid/zero"
	AnchorNodeIDDup  = "/sync/nodeid/dup"
)

// Header holds the fixed-position fields of a frame.
type Header struct {
	Leader Leader
	Fin    byte
	Kind   string // 4 hex digits
	Dst    string // 4 hex digits
	ReqCRC uint16
}

// Frame is one complete unit of the protocol.
//
// Raw is the serialized form and is produced together with the other fields;
// a Frame is never re-serialized after construction.
type Frame struct {
	Header
	Anchor  string
	Payload []byte
	Raw     []byte
}

// Len returns the number of bytes the frame occupies on the wire.
func (f *Frame) Len() int {
	return len(f.Raw)
}

// Length returns the payload length.
func (f *Frame) Length() int {
	return len(f.Payload)
}

// Body returns the payload.
func (f *Frame) Body() []byte {
	return f.Payload
}

// IsFin reports whether this is the last fragment of a message.
func (f *Frame) IsFin() bool {
	return f.Fin == Fin1
}

// CRC returns the checksum carried in the trailer, or 0 when Raw does not
// end in a trailer.
func (f *Frame) CRC() uint16 {
	if len(f.Raw) < TrailerLen {
		return 0
	}
	v, err := strconv.ParseUint(string(f.Raw[len(f.Raw)-4:]), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s %s fin=%c kind=%s dst=%s payload=%d",
		f.Leader, f.Anchor, f.Fin, f.Kind, f.Dst, len(f.Payload))
}

// New builds a frame from its parts.
func New(h Header, anchor string, payload []byte) (*Frame, error) {
	if !h.Leader.Valid() {
		return nil, invalidArgument("unknown leader %q", byte(h.Leader))
	}
	if h.Fin != Fin0 && h.Fin != Fin1 {
		return nil, invalidArgument("fin must be '0' or '1', got %q", h.Fin)
	}
	if h.Kind == "" {
		h.Kind = ZeroTag
	}
	if h.Dst == "" {
		h.Dst = ZeroTag
	}
	if !validTag(h.Kind) {
		return nil, invalidArgument("kind %q is not 4 lowercase hex digits", h.Kind)
	}
	if !validTag(h.Dst) {
		return nil, invalidArgument("dst %q is not 4 lowercase hex digits", h.Dst)
	}
	if err := validateAnchor(anchor); err != nil {
		return nil, err
	}

	total := HeaderLen + len(anchor) + 1 + len(payload) + TrailerLen
	if total > MaxFrameLen {
		return nil, invalidArgument("frame length %d exceeds %d", total, MaxFrameLen)
	}

	raw := make([]byte, 0, total)
	raw = append(raw, byte(h.Leader), h.Fin, version, '#')
	raw = appendHex(raw, uint16(total))
	raw = append(raw, '#')
	raw = append(raw, h.Kind...)
	raw = append(raw, '#')
	raw = append(raw, h.Dst...)
	raw = append(raw, '#')
	raw = appendHex(raw, h.ReqCRC)
	raw = append(raw, '#')
	raw = append(raw, anchor...)
	raw = append(raw, '?')
	raw = append(raw, payload...)
	raw = append(raw, 0)
	raw = appendHex(raw, CRC16(raw))

	p := make([]byte, len(payload))
	copy(p, payload)
	return &Frame{Header: h, Anchor: anchor, Payload: p, Raw: raw}, nil
}

// NewCtrl builds a control frame, e.g. the /sync handshake.
func NewCtrl(kind, anchor string, payload []byte) (*Frame, error) {
	return New(Header{Leader: LeaderCtrl, Fin: Fin1, Kind: kind}, anchor, payload)
}

// EncodeCtrl returns the wire bytes of a control frame.
func EncodeCtrl(kind, anchor string, payload []byte) ([]byte, error) {
	f, err := NewCtrl(kind, anchor, payload)
	if err != nil {
		return nil, err
	}
	return f.Raw, nil
}

// NewRequest builds a request from src to dst.
func NewRequest(src, dst, anchor string, payload []byte) (*Frame, error) {
	return New(Header{Leader: LeaderRequest, Fin: Fin1, Kind: src, Dst: dst}, anchor, payload)
}

// NewResponse builds the response to the request whose CRC is reqcrc.
func NewResponse(src, dst, anchor string, payload []byte, reqcrc uint16) (*Frame, error) {
	return New(Header{Leader: LeaderResponse, Fin: Fin1, Kind: src, Dst: dst, ReqCRC: reqcrc}, anchor, payload)
}

// NewSubscribe builds a subscription to anchor.
func NewSubscribe(anchor string, payload []byte) (*Frame, error) {
	return New(Header{Leader: LeaderSubscribe, Fin: Fin1}, anchor, payload)
}

// NewUnsubscribe builds the cancellation of a subscription to anchor.
func NewUnsubscribe(anchor string, payload []byte) (*Frame, error) {
	return New(Header{Leader: LeaderUnsubscribe, Fin: Fin1}, anchor, payload)
}

// NewPublish builds a message for the subscribers of anchor.
func NewPublish(anchor string, payload []byte) (*Frame, error) {
	return New(Header{Leader: LeaderPublish, Fin: Fin1}, anchor, payload)
}

const hexDigits = "0123456789abcdef"

func appendHex(b []byte, v uint16) []byte {
	return append(b, hexDigits[v>>12&0xf], hexDigits[v>>8&0xf], hexDigits[v>>4&0xf], hexDigits[v&0xf])
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func validTag(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

func isAnchorChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '/', '_', '-', '.', ':':
		return true
	}
	return false
}

func validateAnchor(anchor string) error {
	if anchor == "" {
		return invalidArgument("empty anchor")
	}
	if anchor[0] != '/' {
		return invalidArgument("anchor %q must start with '/'", anchor)
	}
	for i := 1; i < len(anchor); i++ {
		if !isAnchorChar(anchor[i]) {
			return invalidArgument("anchor %q has invalid character %q at %d", anchor, anchor[i], i)
		}
	}
	return nil
}
