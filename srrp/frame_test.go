package srrp

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16_CheckValue(t *testing.T) {
	// CRC-16/CCITT-FALSE check value
	assert.Equal(t, uint16(0x29b1), CRC16([]byte("123456789")))
}

func TestEncodeCtrl_Layout(t *testing.T) {
	raw, err := EncodeCtrl("ff01", "/sync", nil)
	require.NoError(t, err)

	// 24 header + "/sync" + '?' + 5 trailer
	require.Len(t, raw, 35)
	assert.Equal(t, "=11#0023#ff01#0000#0000#/sync?", string(raw[:30]))
	assert.Equal(t, byte(0), raw[30])
	assert.Equal(t, CRC16(raw[:31]), parseHex(raw[31:]))
}

func TestEncodeCtrl_Deterministic(t *testing.T) {
	a, err := EncodeCtrl("ff01", "/sync", []byte("j:{}"))
	require.NoError(t, err)
	b, err := EncodeCtrl("ff01", "/sync", []byte("j:{}"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewCtrl_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		anchor  string
		payload []byte
	}{
		{"sync", "ff01", "/sync", nil},
		{"root anchor", "0000", "/", []byte("x")},
		{"nested", "1111", "/motor/speed", []byte("j:{speed:12,voltage:24}")},
		{"binary payload", "abcd", "/bin_data-1.0:raw", []byte{0, 1, 2, '?', '#', 0xff}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := EncodeCtrl(tc.kind, tc.anchor, tc.payload)
			require.NoError(t, err)

			f, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, f.Raw)
			assert.Equal(t, LeaderCtrl, f.Leader)
			assert.True(t, f.IsFin())
			assert.Equal(t, tc.kind, f.Kind)
			assert.Equal(t, ZeroTag, f.Dst)
			assert.Equal(t, tc.anchor, f.Anchor)
			assert.Equal(t, len(tc.payload), f.Length())
			assert.True(t, bytes.Equal(tc.payload, f.Body()))
			assert.Equal(t, len(raw), f.Len())
		})
	}
}

func TestNewCtrl_InvalidArgument(t *testing.T) {
	cases := []struct {
		name   string
		kind   string
		anchor string
	}{
		{"empty anchor", "ff01", ""},
		{"relative anchor", "ff01", "sync"},
		{"query in anchor", "ff01", "/sync?x"},
		{"space in anchor", "ff01", "/a b"},
		{"short kind", "ff1", "/sync"},
		{"upper kind", "FF01", "/sync"},
		{"non hex kind", "zz01", "/sync"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewCtrl(tc.kind, tc.anchor, nil)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestNew_TooLarge(t *testing.T) {
	_, err := NewPublish("/big", make([]byte, MaxFrameLen))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestNew_UnknownLeader(t *testing.T) {
	_, err := New(Header{Leader: '!', Fin: Fin1}, "/x", nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = New(Header{Leader: LeaderCtrl, Fin: 'x'}, "/x", nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRequestResponse(t *testing.T) {
	req, err := NewRequest("3333", "8888", "/hello/x", []byte("j:{name:'yon',age:'18'}"))
	require.NoError(t, err)

	rx, err := Decode(req.Raw)
	require.NoError(t, err)
	assert.Equal(t, req.Len(), rx.Len())
	assert.Equal(t, LeaderRequest, rx.Leader)
	assert.Equal(t, "3333", rx.Kind)
	assert.Equal(t, "8888", rx.Dst)
	assert.Equal(t, "/hello/x", rx.Anchor)

	crc := rx.CRC()
	resp, err := NewResponse("8888", "3333", "/hello/x", []byte("j:{err:0}"), crc)
	require.NoError(t, err)

	rx, err = Decode(resp.Raw)
	require.NoError(t, err)
	assert.Equal(t, LeaderResponse, rx.Leader)
	assert.Equal(t, crc, rx.ReqCRC)
	assert.Equal(t, "8888", rx.Kind)
	assert.Equal(t, "3333", rx.Dst)
}

func TestSubscribePublish(t *testing.T) {
	sub, err := NewSubscribe("/motor/speed", []byte("j:{ack:0,cache:100}"))
	require.NoError(t, err)
	unsub, err := NewUnsubscribe("/motor/speed", []byte("j:{}"))
	require.NoError(t, err)
	pub, err := NewPublish("/motor/speed", []byte("j:{speed:12,voltage:24}"))
	require.NoError(t, err)

	for _, f := range []*Frame{sub, unsub, pub} {
		rx, err := Decode(f.Raw)
		require.NoError(t, err)
		assert.Equal(t, f.Leader, rx.Leader)
		assert.Equal(t, "/motor/speed", rx.Anchor)
		assert.Equal(t, f.Raw, rx.Raw)
	}
}

func TestLeader_String(t *testing.T) {
	assert.Equal(t, "ctrl", LeaderCtrl.String())
	assert.Equal(t, "publish", LeaderPublish.String())
	assert.Equal(t, `leader('!')`, Leader('!').String())
}

func TestFrame_CRCWithoutTrailer(t *testing.T) {
	assert.Equal(t, uint16(0), (&Frame{}).CRC())
	assert.Equal(t, uint16(0), (&Frame{Raw: []byte("=1#")}).CRC())
	assert.Equal(t, uint16(0), (&Frame{Raw: []byte("/sync?\x00zzzz")}).CRC())

	f, err := NewPublish("/topic", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, CRC16(f.Raw[:f.Len()-4]), f.CRC())
}
