package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a serialized outbound payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
//
// TrySend must not block: a full outbound queue returns ErrBackpressure
// and a closed transport returns ErrConnClosed.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
