// Package stream provides bit-addressable binary readers and writers over
// caller-owned, fixed-size byte buffers.
//
// A Reader or Writer never allocates buffer storage: it is a cursor over a
// []byte supplied at construction. The cursor advances with bit granularity;
// multi-byte values are byte-order converted per the instance's Endianness,
// while bits are always packed least-significant-bit first within a byte, in
// the order written.
//
// Both types share a four-state lifecycle: Open, Empty (reader) or Full
// (writer), ErrorState, and Closed. ErrorState and Closed are absorbing;
// the only transition out of ErrorState is Close. Operations on a stream in a
// bad state fail with the matching sentinel error (ErrEmpty, ErrFull,
// ErrClosed, ErrErrorState) and never corrupt the underlying buffer.
//
// Readers and writers are not safe for concurrent mutation. Use Clone to hand
// an independent cursor over the same buffer to another goroutine.
package stream
