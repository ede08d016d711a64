package stream

import (
	"math"
	"unicode/utf16"
)

// Reader is a bit-addressable cursor over a caller-owned byte buffer.
//
// The zero value is not usable; create readers with NewReader or SubReader.
// Multi-element operations are all-or-nothing: capacity is checked for the
// whole span before any element is transferred.
type Reader struct {
	buf    []byte
	pos    int        // index of the next byte to consume
	bitPos uint8      // bits of buf[pos] already consumed, 0..7
	end    int        // logical end of the window (Shrink reduces this)
	order  Endianness // fixed at construction
	state  State
}

// NewReader creates a reader over buf. The buffer is borrowed, never copied;
// the caller must keep it alive and unmodified while the reader is in use.
func NewReader(buf []byte, order Endianness) *Reader {
	r := &Reader{buf: buf, end: len(buf), order: order, state: Open}
	if len(buf) == 0 {
		r.state = Empty
	}
	return r
}

// State returns the current lifecycle state.
func (r *Reader) State() State { return r.state }

// Order returns the endianness fixed at construction.
func (r *Reader) Order() Endianness { return r.order }

// RemainingBits returns the number of unconsumed bits, or 0 when the reader
// is closed or in error state.
func (r *Reader) RemainingBits() int {
	if r.state == ErrorState || r.state == Closed {
		return 0
	}
	return r.remainingBits()
}

// RemainingBytes returns the number of whole unconsumed bytes.
func (r *Reader) RemainingBytes() int { return r.RemainingBits() / 8 }

func (r *Reader) remainingBits() int {
	return (r.end-r.pos)*8 - int(r.bitPos)
}

// checkOpen validates that a data operation may proceed. A reader that is
// already Empty enters ErrorState, matching the lifecycle contract.
func (r *Reader) checkOpen() error {
	switch r.state {
	case Closed:
		return ErrClosed
	case ErrorState:
		return ErrErrorState
	case Empty:
		r.state = ErrorState
		return ErrEmpty
	}
	return nil
}

// prepare validates state and capacity for an operation consuming nBits.
// On insufficient data the reader enters ErrorState with the cursor untouched.
func (r *Reader) prepare(nBits int) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if nBits > r.remainingBits() {
		r.state = ErrorState
		return ErrEmpty
	}
	return nil
}

// settle moves an Open reader to Empty once everything is consumed.
func (r *Reader) settle() {
	if r.state == Open && r.remainingBits() == 0 {
		r.state = Empty
	}
}

// readBitsRaw consumes n (1..8) bits LSB-first. Capacity must be prechecked.
func (r *Reader) readBitsRaw(n uint8) byte {
	v := uint16(r.buf[r.pos]) >> r.bitPos
	if avail := 8 - r.bitPos; avail < n {
		v |= uint16(r.buf[r.pos+1]) << avail
	}
	total := r.bitPos + n
	r.pos += int(total / 8)
	r.bitPos = total % 8
	return byte(v & (1<<n - 1))
}

// readUintRaw consumes nBytes bytes and assembles them per the reader's
// endianness. Capacity must be prechecked.
func (r *Reader) readUintRaw(nBytes int) uint64 {
	var v uint64
	if r.order == LittleEndian {
		for i := 0; i < nBytes; i++ {
			v |= uint64(r.readBitsRaw(8)) << (8 * i)
		}
	} else {
		for i := 0; i < nBytes; i++ {
			v = v<<8 | uint64(r.readBitsRaw(8))
		}
	}
	return v
}

func (r *Reader) readUint(nBytes int) (uint64, error) {
	if err := r.prepare(nBytes * 8); err != nil {
		return 0, err
	}
	v := r.readUintRaw(nBytes)
	r.settle()
	return v, nil
}

// ReadUint8 reads one unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.readUint(1)
	return uint8(v), err
}

// ReadUint16 reads a 16-bit unsigned value.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.readUint(2)
	return uint16(v), err
}

// ReadUint32 reads a 32-bit unsigned value.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.readUint(4)
	return uint32(v), err
}

// ReadUint64 reads a 64-bit unsigned value.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.readUint(8)
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.readUint(1)
	return int8(v), err
}

// ReadInt16 reads a 16-bit signed value.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.readUint(2)
	return int16(v), err
}

// ReadInt32 reads a 32-bit signed value.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.readUint(4)
	return int32(v), err
}

// ReadInt64 reads a 64-bit signed value.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.readUint(8)
	return int64(v), err
}

// ReadFloat32 reads an IEEE754 single-precision value.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.readUint(4)
	return math.Float32frombits(uint32(v)), err
}

// ReadFloat64 reads an IEEE754 double-precision value.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.readUint(8)
	return math.Float64frombits(v), err
}

// ReadBool reads one full byte and interprets any non-zero value as true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.readUint(1)
	return v != 0, err
}

// ReadBit reads exactly one bit.
func (r *Reader) ReadBit() (bool, error) {
	if err := r.prepare(1); err != nil {
		return false, err
	}
	v := r.readBitsRaw(1)
	r.settle()
	return v != 0, nil
}

// ReadBits reads n (1..8) bits into the low-order bits of the result.
func (r *Reader) ReadBits(n uint8) (byte, error) {
	if n < 1 || n > 8 {
		return 0, ErrBitCount
	}
	if err := r.prepare(int(n)); err != nil {
		return 0, err
	}
	v := r.readBitsRaw(n)
	r.settle()
	return v, nil
}

// ReadBitsInto reads nBits bits packed LSB-first across byte boundaries into
// dst, which must hold at least (nBits+7)/8 bytes. The final partial byte, if
// any, carries its bits in the low-order positions.
func (r *Reader) ReadBitsInto(dst []byte, nBits int) error {
	if nBits < 0 || len(dst)*8 < nBits {
		return ErrInvalidCount
	}
	if nBits == 0 {
		return nil
	}
	if err := r.prepare(nBits); err != nil {
		return err
	}
	i := 0
	for ; nBits >= 8; nBits -= 8 {
		dst[i] = r.readBitsRaw(8)
		i++
	}
	if nBits > 0 {
		dst[i] = r.readBitsRaw(uint8(nBits))
	}
	r.settle()
	return nil
}

// ReadBytes fills dst completely with the next len(dst) bytes.
func (r *Reader) ReadBytes(dst []byte) error {
	if err := r.prepare(len(dst) * 8); err != nil {
		return err
	}
	if r.bitPos == 0 {
		copy(dst, r.buf[r.pos:r.pos+len(dst)])
		r.pos += len(dst)
	} else {
		for i := range dst {
			dst[i] = r.readBitsRaw(8)
		}
	}
	r.settle()
	return nil
}

// ReadUint16Into fills dst with 16-bit values; all-or-nothing.
func (r *Reader) ReadUint16Into(dst []uint16) error {
	if err := r.prepare(len(dst) * 16); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = uint16(r.readUintRaw(2))
	}
	r.settle()
	return nil
}

// ReadUint32Into fills dst with 32-bit values; all-or-nothing.
func (r *Reader) ReadUint32Into(dst []uint32) error {
	if err := r.prepare(len(dst) * 32); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = uint32(r.readUintRaw(4))
	}
	r.settle()
	return nil
}

// ReadUint64Into fills dst with 64-bit values; all-or-nothing.
func (r *Reader) ReadUint64Into(dst []uint64) error {
	if err := r.prepare(len(dst) * 64); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = r.readUintRaw(8)
	}
	r.settle()
	return nil
}

// ReadInt16Into fills dst with 16-bit signed values; all-or-nothing.
func (r *Reader) ReadInt16Into(dst []int16) error {
	if err := r.prepare(len(dst) * 16); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int16(r.readUintRaw(2))
	}
	r.settle()
	return nil
}

// ReadInt32Into fills dst with 32-bit signed values; all-or-nothing.
func (r *Reader) ReadInt32Into(dst []int32) error {
	if err := r.prepare(len(dst) * 32); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int32(r.readUintRaw(4))
	}
	r.settle()
	return nil
}

// ReadInt64Into fills dst with 64-bit signed values; all-or-nothing.
func (r *Reader) ReadInt64Into(dst []int64) error {
	if err := r.prepare(len(dst) * 64); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int64(r.readUintRaw(8))
	}
	r.settle()
	return nil
}

// ReadFloat32Into fills dst with single-precision values; all-or-nothing.
func (r *Reader) ReadFloat32Into(dst []float32) error {
	if err := r.prepare(len(dst) * 32); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(uint32(r.readUintRaw(4)))
	}
	r.settle()
	return nil
}

// ReadFloat64Into fills dst with double-precision values; all-or-nothing.
func (r *Reader) ReadFloat64Into(dst []float64) error {
	if err := r.prepare(len(dst) * 64); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float64frombits(r.readUintRaw(8))
	}
	r.settle()
	return nil
}

// ReadString reads a NUL-terminated string. The terminator is consumed but
// not included in the result. Running out of data before the terminator puts
// the reader into ErrorState.
func (r *Reader) ReadString() (string, error) {
	if err := r.checkOpen(); err != nil {
		return "", err
	}
	var b []byte
	for {
		if r.remainingBits() < 8 {
			r.state = ErrorState
			return "", ErrEmpty
		}
		c := r.readBitsRaw(8)
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	r.settle()
	return string(b), nil
}

// ReadLine reads a line terminated by '\n', '\r', "\r\n", NUL, or the end of
// the stream. The terminator is consumed but not included in the result.
func (r *Reader) ReadLine() (string, error) {
	if err := r.checkOpen(); err != nil {
		return "", err
	}
	var b []byte
	for r.remainingBits() >= 8 {
		c := r.readBitsRaw(8)
		if c == 0 || c == '\n' {
			break
		}
		if c == '\r' {
			// consume a following '\n' if present
			if r.bitPos == 0 && r.remainingBits() >= 8 && r.buf[r.pos] == '\n' {
				r.readBitsRaw(8)
			}
			break
		}
		b = append(b, c)
	}
	r.settle()
	return string(b), nil
}

// ReadUnicodeString reads nUnits UTF-16 code units, byte-swapped per the
// reader's endianness, and decodes them to a string.
func (r *Reader) ReadUnicodeString(nUnits int) (string, error) {
	if nUnits < 0 {
		return "", ErrInvalidCount
	}
	units := make([]uint16, nUnits)
	if err := r.ReadUint16Into(units); err != nil {
		return "", err
	}
	return string(utf16.Decode(units)), nil
}

// Skip advances the cursor by nBits without transferring data. If fewer than
// nBits remain the reader enters ErrorState with the cursor at its pre-call
// position.
func (r *Reader) Skip(nBits int) error {
	if nBits < 0 {
		return ErrInvalidCount
	}
	switch r.state {
	case Closed:
		return ErrClosed
	case ErrorState:
		return ErrErrorState
	}
	if nBits == 0 {
		return nil
	}
	if err := r.prepare(nBits); err != nil {
		return err
	}
	total := int(r.bitPos) + nBits
	r.pos += total / 8
	r.bitPos = uint8(total % 8)
	r.settle()
	return nil
}

// SubReader carves an independent reader over exactly the next nBytes. The
// parent cursor must be byte-aligned; the parent advances by nBytes*8 bits
// and the child starts at bit 0 of its own window. On insufficient data the
// parent is left unmodified. SubReader(0) is legal even on an Empty parent
// and yields an Empty child.
func (r *Reader) SubReader(nBytes int) (*Reader, error) {
	switch r.state {
	case Closed:
		return nil, ErrClosed
	case ErrorState:
		return nil, ErrErrorState
	}
	if nBytes < 0 {
		return nil, ErrInvalidCount
	}
	if r.bitPos != 0 {
		return nil, ErrUnaligned
	}
	if nBytes*8 > r.remainingBits() {
		return nil, ErrEmpty
	}
	child := NewReader(r.buf[r.pos:r.pos+nBytes], r.order)
	r.pos += nBytes
	r.settle()
	return child, nil
}

// Shrink reduces the logically remaining byte count to n. Only a decrease is
// legal; it has no effect if the reader is already at or below n bytes.
func (r *Reader) Shrink(n int) error {
	switch r.state {
	case Closed:
		return ErrClosed
	case ErrorState:
		return ErrErrorState
	}
	if n < 0 {
		return ErrInvalidCount
	}
	rb := r.remainingBits() / 8
	if n > rb {
		return ErrShrinkGrow
	}
	r.end -= rb - n
	r.settle()
	return nil
}

// Bytes is a zero-copy escape hatch. It returns the raw remaining window, but
// only when the cursor is byte-aligned, the reader is Open, and expected is
// exactly that window (same backing array, same length). It does not advance
// the cursor.
func (r *Reader) Bytes(expected []byte) ([]byte, error) {
	if r.state != Open {
		switch r.state {
		case Closed:
			return nil, ErrClosed
		case ErrorState:
			return nil, ErrErrorState
		default:
			return nil, ErrEmpty
		}
	}
	if r.bitPos != 0 {
		return nil, ErrUnaligned
	}
	window := r.buf[r.pos:r.end]
	if len(expected) != len(window) || len(window) == 0 || &expected[0] != &window[0] {
		return nil, ErrBufferMismatch
	}
	return window, nil
}

// EnsureAllDataConsumed verifies the remaining bit count against an
// expectation and returns ErrRemainingBits on mismatch. The reader state is
// left unchanged.
func (r *Reader) EnsureAllDataConsumed(expect RemainingBits) error {
	switch r.state {
	case Closed:
		return ErrClosed
	case ErrorState:
		return ErrErrorState
	}
	if !expect.matches(r.remainingBits()) {
		return ErrRemainingBits
	}
	return nil
}

// Close closes the reader. Close is idempotent.
func (r *Reader) Close() error {
	r.state = Closed
	return nil
}

// Clone duplicates the cursor state over the same buffer. Both readers
// advance independently afterwards.
func (r *Reader) Clone() *Reader {
	c := *r
	return &c
}
