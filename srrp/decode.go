package srrp

import "strconv"

// minFrameLen is a frame with a one byte anchor and no payload.
const minFrameLen = HeaderLen + 2 + TrailerLen

// headerByteOK checks byte c against the grammar of header position i.
func headerByteOK(i int, c byte) bool {
	switch i {
	case 0:
		return Leader(c).Valid()
	case 1:
		return c == Fin0 || c == Fin1
	case 2:
		return c == version
	case 3, 8, 13, 18, 23:
		return c == '#'
	default:
		return isHex(c)
	}
}

func parseHex(b []byte) uint16 {
	v, _ := strconv.ParseUint(string(b), 16, 16)
	return uint16(v)
}

// Decode parses the frame at the start of buf.
//
// It returns ErrNotAFrame as soon as a byte does not fit the frame grammar
// and ErrIncomplete when all bytes seen so far fit but the frame is not
// complete yet. buf may hold more than one frame; the returned frame's Len
// tells how many bytes it consumed. The frame does not alias buf.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) == 0 {
		return nil, ErrIncomplete
	}

	n := len(buf)
	if n > HeaderLen {
		n = HeaderLen
	}
	for i := 0; i < n; i++ {
		if !headerByteOK(i, buf[i]) {
			return nil, ErrNotAFrame
		}
	}
	if len(buf) < 8 {
		return nil, ErrIncomplete
	}

	total := int(parseHex(buf[4:8]))
	if total < minFrameLen {
		return nil, ErrNotAFrame
	}
	if len(buf) < HeaderLen {
		return nil, ErrIncomplete
	}

	// anchor: '/' then anchor characters up to '?', all before the trailer
	anchorEnd := total - TrailerLen
	q := -1
	for i := HeaderLen; i < len(buf) && i < anchorEnd; i++ {
		c := buf[i]
		if i == HeaderLen {
			if c != '/' {
				return nil, ErrNotAFrame
			}
			continue
		}
		if c == '?' {
			q = i
			break
		}
		if !isAnchorChar(c) {
			return nil, ErrNotAFrame
		}
	}
	if q < 0 {
		if len(buf) >= anchorEnd {
			return nil, ErrNotAFrame
		}
		return nil, ErrIncomplete
	}

	if len(buf) < total {
		return nil, ErrIncomplete
	}

	if buf[total-TrailerLen] != 0 {
		return nil, ErrNotAFrame
	}
	for _, c := range buf[total-4 : total] {
		if !isHex(c) {
			return nil, ErrNotAFrame
		}
	}
	if CRC16(buf[:total-4]) != parseHex(buf[total-4:total]) {
		return nil, ErrNotAFrame
	}

	raw := make([]byte, total)
	copy(raw, buf[:total])
	payload := make([]byte, total-TrailerLen-(q+1))
	copy(payload, raw[q+1:total-TrailerLen])

	return &Frame{
		Header: Header{
			Leader: Leader(raw[0]),
			Fin:    raw[1],
			Kind:   string(raw[9:13]),
			Dst:    string(raw[14:18]),
			ReqCRC: parseHex(raw[19:23]),
		},
		Anchor:  string(raw[HeaderLen:q]),
		Payload: payload,
		Raw:     raw,
	}, nil
}

// NextFrameOffset returns the offset of the first byte in buf that may start a
// frame, or len(buf) if there is none.
func NextFrameOffset(buf []byte) int {
	for off := 0; off < len(buf); off++ {
		if !Leader(buf[off]).Valid() {
			continue
		}
		if _, err := Decode(buf[off:]); err != ErrNotAFrame {
			return off
		}
	}
	return len(buf)
}
