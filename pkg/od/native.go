package od

import (
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// Native storage uses little-endian field layout and is accessed exclusively
// through the bounds-checked helpers in this file. Bit fields are addressed
// by absolute bit position, packed LSB-first.

// nativeLoad reads an n-byte little-endian unsigned value at off.
func nativeLoad(data []byte, off, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(data[off+i]) << (8 * i)
	}
	return v
}

// nativeStore writes an n-byte little-endian unsigned value at off.
func nativeStore(data []byte, off, n int, v uint64) {
	for i := 0; i < n; i++ {
		data[off+i] = byte(v >> (8 * i))
	}
}

// nativeGetBits extracts width (1..8) bits starting at absolute bit position
// bitPos, LSB-first. The span may cross one byte boundary.
func nativeGetBits(data []byte, bitPos, width int) byte {
	off := bitPos / 8
	shift := uint(bitPos % 8)
	v := uint16(data[off]) >> shift
	if int(shift)+width > 8 {
		v |= uint16(data[off+1]) << (8 - shift)
	}
	return byte(v & (1<<width - 1))
}

// nativeSetBits stores the width (1..8) low-order bits of v at absolute bit
// position bitPos, LSB-first, leaving surrounding bits untouched.
func nativeSetBits(data []byte, bitPos, width int, v byte) {
	off := bitPos / 8
	shift := uint(bitPos % 8)
	mask := uint16(1<<width-1) << shift
	cur := uint16(data[off])
	if int(shift)+width > 8 {
		cur |= uint16(data[off+1]) << 8
	}
	cur = cur&^mask | (uint16(v)<<shift)&mask
	data[off] = byte(cur)
	if int(shift)+width > 8 {
		data[off+1] = byte(cur >> 8)
	}
}

// streamOutScalar writes one element of type t from native storage to w.
// bitPos is the absolute native bit position; byte-aligned for non-bit types.
func streamOutScalar(w *stream.Writer, t DataType, data []byte, bitPos int) error {
	off := bitPos / 8
	switch t {
	case TypeBoolean:
		return w.WriteBool(data[off] != 0)
	case TypeBooleanNativeBit1:
		return w.WriteBit(nativeGetBits(data, bitPos, 1) != 0)
	case TypeInteger8, TypeUnsigned8, TypeVisibleString, TypeOctetString:
		return w.WriteUint8(data[off])
	case TypeInteger16, TypeUnsigned16, TypeUnicodeString:
		return w.WriteUint16(uint16(nativeLoad(data, off, 2)))
	case TypeInteger32, TypeUnsigned32, TypeReal32:
		return w.WriteUint32(uint32(nativeLoad(data, off, 4)))
	case TypeInteger64, TypeUnsigned64, TypeReal64:
		return w.WriteUint64(nativeLoad(data, off, 8))
	default:
		if t.IsBitField() {
			return w.WriteBits(nativeGetBits(data, bitPos, t.BitSize()), uint8(t.BitSize()))
		}
		return ErrDataTypeNotSupported
	}
}

// streamInScalar reads one element of type t from r into native storage.
// Boolean values are normalized to 0x00/0x01.
func streamInScalar(r *stream.Reader, t DataType, data []byte, bitPos int) error {
	off := bitPos / 8
	switch t {
	case TypeBoolean:
		v, err := r.ReadBool()
		if err != nil {
			return err
		}
		if v {
			data[off] = 1
		} else {
			data[off] = 0
		}
		return nil
	case TypeBooleanNativeBit1:
		v, err := r.ReadBit()
		if err != nil {
			return err
		}
		var b byte
		if v {
			b = 1
		}
		nativeSetBits(data, bitPos, 1, b)
		return nil
	case TypeInteger8, TypeUnsigned8, TypeVisibleString, TypeOctetString:
		v, err := r.ReadUint8()
		if err != nil {
			return err
		}
		data[off] = v
		return nil
	case TypeInteger16, TypeUnsigned16, TypeUnicodeString:
		v, err := r.ReadUint16()
		if err != nil {
			return err
		}
		nativeStore(data, off, 2, uint64(v))
		return nil
	case TypeInteger32, TypeUnsigned32, TypeReal32:
		v, err := r.ReadUint32()
		if err != nil {
			return err
		}
		nativeStore(data, off, 4, uint64(v))
		return nil
	case TypeInteger64, TypeUnsigned64, TypeReal64:
		v, err := r.ReadUint64()
		if err != nil {
			return err
		}
		nativeStore(data, off, 8, v)
		return nil
	default:
		if t.IsBitField() {
			v, err := r.ReadBits(uint8(t.BitSize()))
			if err != nil {
				return err
			}
			nativeSetBits(data, bitPos, t.BitSize(), v)
			return nil
		}
		return ErrDataTypeNotSupported
	}
}

// streamOutElements writes n consecutive elements of type t starting at
// native bit position bitPos. Bit-field elements pack contiguously.
func streamOutElements(w *stream.Writer, t DataType, n int, data []byte, bitPos int) error {
	step := t.BitSize()
	if !t.IsBitField() {
		step = t.NativeByteSize() * 8
	}
	for i := 0; i < n; i++ {
		if err := streamOutScalar(w, t, data, bitPos+i*step); err != nil {
			return err
		}
	}
	return nil
}

// streamInElements reads n consecutive elements of type t into native
// storage starting at bit position bitPos.
func streamInElements(r *stream.Reader, t DataType, n int, data []byte, bitPos int) error {
	step := t.BitSize()
	if !t.IsBitField() {
		step = t.NativeByteSize() * 8
	}
	for i := 0; i < n; i++ {
		if err := streamInScalar(r, t, data, bitPos+i*step); err != nil {
			return err
		}
	}
	return nil
}

// nativeSpan returns the bytes of native storage n elements of type t occupy.
// Bit-field elements pack contiguously and round up to whole bytes.
func nativeSpan(t DataType, n int) int {
	if t.IsBitField() {
		return (t.BitSize()*n + 7) / 8
	}
	return t.NativeByteSize() * n
}

// strLen returns the length of a NUL-terminated string within a fixed field.
func strLen(field []byte) int {
	for i, b := range field {
		if b == 0 {
			return i
		}
	}
	return len(field)
}
