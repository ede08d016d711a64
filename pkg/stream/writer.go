package stream

import (
	"math"
	"unicode/utf16"
)

// Writer is a bit-addressable cursor writing into a caller-owned byte buffer.
//
// Sub-byte bits are cached until a full byte accumulates; Close flushes a
// trailing partial byte zero-padded in the high-order positions. Multi-element
// operations are all-or-nothing: capacity is checked for the whole span before
// any element is transferred.
type Writer struct {
	buf      []byte
	pos      int   // index of the next byte to fill
	bitCache byte  // pending bits, LSB-first
	bitCount uint8 // number of pending bits, 0..7
	order    Endianness
	state    State
}

// NewWriter creates a writer over buf. The buffer is borrowed, never copied.
func NewWriter(buf []byte, order Endianness) *Writer {
	w := &Writer{buf: buf, order: order, state: Open}
	if len(buf) == 0 {
		w.state = Full
	}
	return w
}

// State returns the current lifecycle state.
func (w *Writer) State() State { return w.state }

// Order returns the endianness fixed at construction.
func (w *Writer) Order() Endianness { return w.order }

// RemainingBits returns the number of writable bits, or 0 when the writer is
// closed or in error state.
func (w *Writer) RemainingBits() int {
	if w.state == ErrorState || w.state == Closed {
		return 0
	}
	return w.remainingBits()
}

// RemainingBytes returns the number of whole writable bytes.
func (w *Writer) RemainingBytes() int { return w.RemainingBits() / 8 }

func (w *Writer) remainingBits() int {
	return (len(w.buf)-w.pos)*8 - int(w.bitCount)
}

// BitsWritten returns the total number of bits written so far, including
// cached sub-byte bits not yet flushed.
func (w *Writer) BitsWritten() int {
	return w.pos*8 + int(w.bitCount)
}

// BytesWritten returns the number of fully flushed bytes. A cached sub-byte
// remainder is not counted until Close flushes it.
func (w *Writer) BytesWritten() int { return w.pos }

// Buffer returns the caller-owned backing buffer.
func (w *Writer) Buffer() []byte { return w.buf }

func (w *Writer) checkOpen() error {
	switch w.state {
	case Closed:
		return ErrClosed
	case ErrorState:
		return ErrErrorState
	case Full:
		w.state = ErrorState
		return ErrFull
	}
	return nil
}

// prepare validates state and capacity for an operation producing nBits.
// On insufficient capacity the writer enters ErrorState with the cursor and
// buffer untouched.
func (w *Writer) prepare(nBits int) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if nBits > w.remainingBits() {
		w.state = ErrorState
		return ErrFull
	}
	return nil
}

func (w *Writer) settle() {
	if w.state == Open && w.remainingBits() == 0 {
		w.state = Full
	}
}

// writeBitsRaw appends n (1..8) bits of v LSB-first. Capacity must be
// prechecked; upper bits of v beyond n are masked off.
func (w *Writer) writeBitsRaw(v byte, n uint8) {
	masked := uint16(v) & (1<<n - 1)
	combined := uint16(w.bitCache) | masked<<w.bitCount
	total := w.bitCount + n
	if total >= 8 {
		w.buf[w.pos] = byte(combined)
		w.pos++
		w.bitCache = byte(combined >> 8)
		w.bitCount = total - 8
	} else {
		w.bitCache = byte(combined)
		w.bitCount = total
	}
}

// writeUintRaw appends nBytes bytes of v per the writer's endianness.
func (w *Writer) writeUintRaw(v uint64, nBytes int) {
	if w.order == LittleEndian {
		for i := 0; i < nBytes; i++ {
			w.writeBitsRaw(byte(v>>(8*i)), 8)
		}
	} else {
		for i := nBytes - 1; i >= 0; i-- {
			w.writeBitsRaw(byte(v>>(8*i)), 8)
		}
	}
}

func (w *Writer) writeUint(v uint64, nBytes int) error {
	if err := w.prepare(nBytes * 8); err != nil {
		return err
	}
	w.writeUintRaw(v, nBytes)
	w.settle()
	return nil
}

// WriteUint8 writes one unsigned byte.
func (w *Writer) WriteUint8(v uint8) error { return w.writeUint(uint64(v), 1) }

// WriteUint16 writes a 16-bit unsigned value.
func (w *Writer) WriteUint16(v uint16) error { return w.writeUint(uint64(v), 2) }

// WriteUint32 writes a 32-bit unsigned value.
func (w *Writer) WriteUint32(v uint32) error { return w.writeUint(uint64(v), 4) }

// WriteUint64 writes a 64-bit unsigned value.
func (w *Writer) WriteUint64(v uint64) error { return w.writeUint(v, 8) }

// WriteInt8 writes a signed byte.
func (w *Writer) WriteInt8(v int8) error { return w.writeUint(uint64(uint8(v)), 1) }

// WriteInt16 writes a 16-bit signed value.
func (w *Writer) WriteInt16(v int16) error { return w.writeUint(uint64(uint16(v)), 2) }

// WriteInt32 writes a 32-bit signed value.
func (w *Writer) WriteInt32(v int32) error { return w.writeUint(uint64(uint32(v)), 4) }

// WriteInt64 writes a 64-bit signed value.
func (w *Writer) WriteInt64(v int64) error { return w.writeUint(uint64(v), 8) }

// WriteFloat32 writes an IEEE754 single-precision value.
func (w *Writer) WriteFloat32(v float32) error {
	return w.writeUint(uint64(math.Float32bits(v)), 4)
}

// WriteFloat64 writes an IEEE754 double-precision value.
func (w *Writer) WriteFloat64(v float64) error {
	return w.writeUint(math.Float64bits(v), 8)
}

// WriteBool writes one full byte: 0x01 for true, 0x00 for false.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.writeUint(1, 1)
	}
	return w.writeUint(0, 1)
}

// WriteBit writes exactly one bit.
func (w *Writer) WriteBit(v bool) error {
	if err := w.prepare(1); err != nil {
		return err
	}
	var b byte
	if v {
		b = 1
	}
	w.writeBitsRaw(b, 1)
	w.settle()
	return nil
}

// WriteBits writes the n (1..8) low-order bits of v; upper bits are ignored.
func (w *Writer) WriteBits(v byte, n uint8) error {
	if n < 1 || n > 8 {
		return ErrBitCount
	}
	if err := w.prepare(int(n)); err != nil {
		return err
	}
	w.writeBitsRaw(v, n)
	w.settle()
	return nil
}

// WriteBitsFrom writes nBits bits from src, packed LSB-first across byte
// boundaries. src must hold at least (nBits+7)/8 bytes.
func (w *Writer) WriteBitsFrom(src []byte, nBits int) error {
	if nBits < 0 || len(src)*8 < nBits {
		return ErrInvalidCount
	}
	if nBits == 0 {
		return nil
	}
	if err := w.prepare(nBits); err != nil {
		return err
	}
	i := 0
	for ; nBits >= 8; nBits -= 8 {
		w.writeBitsRaw(src[i], 8)
		i++
	}
	if nBits > 0 {
		w.writeBitsRaw(src[i], uint8(nBits))
	}
	w.settle()
	return nil
}

// WriteBytes writes all of src.
func (w *Writer) WriteBytes(src []byte) error {
	if err := w.prepare(len(src) * 8); err != nil {
		return err
	}
	if w.bitCount == 0 {
		copy(w.buf[w.pos:], src)
		w.pos += len(src)
	} else {
		for _, b := range src {
			w.writeBitsRaw(b, 8)
		}
	}
	w.settle()
	return nil
}

// WriteUint16From writes all 16-bit values from src; all-or-nothing.
func (w *Writer) WriteUint16From(src []uint16) error {
	if err := w.prepare(len(src) * 16); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(v), 2)
	}
	w.settle()
	return nil
}

// WriteUint32From writes all 32-bit values from src; all-or-nothing.
func (w *Writer) WriteUint32From(src []uint32) error {
	if err := w.prepare(len(src) * 32); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(v), 4)
	}
	w.settle()
	return nil
}

// WriteUint64From writes all 64-bit values from src; all-or-nothing.
func (w *Writer) WriteUint64From(src []uint64) error {
	if err := w.prepare(len(src) * 64); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(v, 8)
	}
	w.settle()
	return nil
}

// WriteInt16From writes all 16-bit signed values from src; all-or-nothing.
func (w *Writer) WriteInt16From(src []int16) error {
	if err := w.prepare(len(src) * 16); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(uint16(v)), 2)
	}
	w.settle()
	return nil
}

// WriteInt32From writes all 32-bit signed values from src; all-or-nothing.
func (w *Writer) WriteInt32From(src []int32) error {
	if err := w.prepare(len(src) * 32); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(uint32(v)), 4)
	}
	w.settle()
	return nil
}

// WriteInt64From writes all 64-bit signed values from src; all-or-nothing.
func (w *Writer) WriteInt64From(src []int64) error {
	if err := w.prepare(len(src) * 64); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(v), 8)
	}
	w.settle()
	return nil
}

// WriteFloat32From writes all single-precision values from src; all-or-nothing.
func (w *Writer) WriteFloat32From(src []float32) error {
	if err := w.prepare(len(src) * 32); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(uint64(math.Float32bits(v)), 4)
	}
	w.settle()
	return nil
}

// WriteFloat64From writes all double-precision values from src; all-or-nothing.
func (w *Writer) WriteFloat64From(src []float64) error {
	if err := w.prepare(len(src) * 64); err != nil {
		return err
	}
	for _, v := range src {
		w.writeUintRaw(math.Float64bits(v), 8)
	}
	w.settle()
	return nil
}

// WriteString writes s followed by a NUL terminator.
func (w *Writer) WriteString(s string) error {
	if err := w.prepare((len(s) + 1) * 8); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		w.writeBitsRaw(s[i], 8)
	}
	w.writeBitsRaw(0, 8)
	w.settle()
	return nil
}

// WriteLine writes s followed by a '\n' terminator.
func (w *Writer) WriteLine(s string) error {
	if err := w.prepare((len(s) + 1) * 8); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		w.writeBitsRaw(s[i], 8)
	}
	w.writeBitsRaw('\n', 8)
	w.settle()
	return nil
}

// WriteUnicodeString writes s as UTF-16 code units, byte-swapped per the
// writer's endianness.
func (w *Writer) WriteUnicodeString(s string) error {
	return w.WriteUint16From(utf16.Encode([]rune(s)))
}

// Close closes the writer. A writer in Open state with cached sub-byte bits
// flushes them zero-padded in the high-order positions as one final byte.
// Close is idempotent.
func (w *Writer) Close() error {
	if (w.state == Open || w.state == Full) && w.bitCount > 0 {
		w.buf[w.pos] = w.bitCache
		w.pos++
		w.bitCache = 0
		w.bitCount = 0
	}
	w.state = Closed
	return nil
}

// Clone duplicates the cursor state over the same buffer. Both writers
// advance independently afterwards.
func (w *Writer) Clone() *Writer {
	c := *w
	return &c
}
