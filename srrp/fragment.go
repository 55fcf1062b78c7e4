package srrp

// Split cuts f into frames carrying at most limit payload bytes each. All but
// the last are marked Fin0. A frame that already fits is returned unchanged.
func Split(f *Frame, limit int) ([]*Frame, error) {
	if limit <= 0 {
		return nil, invalidArgument("split limit %d", limit)
	}
	if len(f.Payload) <= limit {
		return []*Frame{f}, nil
	}

	frames := make([]*Frame, 0, len(f.Payload)/limit+1)
	for idx := 0; idx < len(f.Payload); idx += limit {
		end := idx + limit
		h := f.Header
		h.Fin = Fin0
		if end >= len(f.Payload) {
			end = len(f.Payload)
			h.Fin = f.Fin
		}
		part, err := New(h, f.Anchor, f.Payload[idx:end])
		if err != nil {
			return nil, err
		}
		frames = append(frames, part)
	}
	return frames, nil
}

// SameMessage reports whether b may continue the fragmented message a.
func SameMessage(a, b *Frame) bool {
	return a.Leader == b.Leader &&
		a.Kind == b.Kind &&
		a.Dst == b.Dst &&
		a.ReqCRC == b.ReqCRC &&
		a.Anchor == b.Anchor
}

// Cat appends the payload of next to the unfinished frame head. The result
// carries the fin marker of next.
func Cat(head, next *Frame) (*Frame, error) {
	if head.IsFin() {
		return nil, invalidArgument("cat onto a finished frame")
	}
	if !SameMessage(head, next) {
		return nil, ErrMismatch
	}

	payload := make([]byte, 0, len(head.Payload)+len(next.Payload))
	payload = append(payload, head.Payload...)
	payload = append(payload, next.Payload...)

	h := head.Header
	h.Fin = next.Fin
	return New(h, head.Anchor, payload)
}
