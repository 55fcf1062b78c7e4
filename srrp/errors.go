package srrp

import "github.com/pkg/errors"

// Decode outcomes. Neither is a failure: ErrNotAFrame means the bytes are not
// protocol traffic, ErrIncomplete means more bytes are needed.
var (
	ErrNotAFrame  = errors.New("srrp: not a frame")
	ErrIncomplete = errors.New("srrp: incomplete frame")
)

var (
	// ErrInvalidArgument is returned by the constructors for inputs that
	// cannot be encoded.
	ErrInvalidArgument = errors.New("srrp: invalid argument")
	// ErrMismatch is returned by Cat when the frames do not belong together.
	ErrMismatch = errors.New("srrp: frame mismatch")
)

func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
