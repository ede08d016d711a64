package stream

import "errors"

// Stream errors. Capacity and lifecycle failures leave the stream in a
// well-defined state (ErrorState or unchanged, see each operation) and never
// corrupt the underlying buffer.
var (
	// ErrEmpty indicates a reader had fewer bits remaining than requested.
	ErrEmpty = errors.New("stream: not enough data remaining")

	// ErrFull indicates a writer had less capacity remaining than requested.
	ErrFull = errors.New("stream: not enough capacity remaining")

	// ErrClosed indicates an operation on a closed stream.
	ErrClosed = errors.New("stream: stream is closed")

	// ErrErrorState indicates an operation on a stream in ErrorState.
	ErrErrorState = errors.New("stream: stream is in error state")

	// ErrRemainingBits indicates EnsureAllDataConsumed found a remaining bit
	// count that does not match the expectation.
	ErrRemainingBits = errors.New("stream: remaining bits do not match expectation")

	// ErrShrinkGrow indicates Shrink was asked to enlarge the remaining window.
	ErrShrinkGrow = errors.New("stream: shrink cannot enlarge remaining window")

	// ErrUnaligned indicates an operation that requires a byte-aligned cursor
	// was invoked mid-byte.
	ErrUnaligned = errors.New("stream: cursor is not byte-aligned")

	// ErrBufferMismatch indicates the caller-supplied buffer identity did not
	// match the underlying buffer in Bytes.
	ErrBufferMismatch = errors.New("stream: buffer identity mismatch")

	// ErrBitCount indicates a bit count outside the supported range.
	ErrBitCount = errors.New("stream: bit count out of range")

	// ErrInvalidCount indicates a negative element or byte count.
	ErrInvalidCount = errors.New("stream: invalid count")
)
