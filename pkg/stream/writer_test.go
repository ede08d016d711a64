package stream

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterScalars(t *testing.T) {
	buf := make([]byte, 7)
	w := NewWriter(buf, LittleEndian)

	if err := w.WriteUint8(0x32); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x9576); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0xABCD1234); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x32, 0x76, 0x95, 0x34, 0x12, 0xCD, 0xAB}
	if !bytes.Equal(buf, want) {
		t.Errorf("expected % X, got % X", want, buf)
	}
	if got := w.State(); got != Full {
		t.Errorf("expected Full after exact fill, got %s", got)
	}
}

func TestWriterBigEndian(t *testing.T) {
	buf := make([]byte, 6)
	w := NewWriter(buf, BigEndian)
	if err := w.WriteUint16(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0xABCDEF01); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x12, 0x34, 0xAB, 0xCD, 0xEF, 0x01}
	if !bytes.Equal(buf, want) {
		t.Errorf("expected % X, got % X", want, buf)
	}
}

func TestWriterOverflowIsFatal(t *testing.T) {
	w := NewWriter(make([]byte, 3), LittleEndian)
	if err := w.WriteUint16(0x1111); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x2222); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if got := w.State(); got != ErrorState {
		t.Errorf("expected ErrorState, got %s", got)
	}
	// All-or-nothing: the third byte was never touched.
	if w.Buffer()[2] != 0 {
		t.Errorf("partial write leaked into the buffer: 0x%02X", w.Buffer()[2])
	}
	if err := w.WriteUint8(0xFF); !errors.Is(err, ErrErrorState) {
		t.Errorf("expected ErrErrorState, got %v", err)
	}
}

func TestWriterCloseFlushesPartialByte(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf, LittleEndian)

	if err := w.WriteBytes([]byte{0xAA, 0xBB, 0xCC}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0x5D, 7); err != nil {
		t.Fatal(err)
	}
	if got := w.BytesWritten(); got != 3 {
		t.Errorf("cached bits must not count as flushed, got %d bytes", got)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// The 7 cached bits land zero-padded in the top position.
	want := []byte{0xAA, 0xBB, 0xCC, 0x5D}
	if !bytes.Equal(buf, want) {
		t.Errorf("expected % X, got % X", want, buf)
	}
	if err := w.WriteUint8(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close must be idempotent, got %v", err)
	}
}

func TestWriterBits(t *testing.T) {
	t.Run("LSBFirstPacking", func(t *testing.T) {
		buf := make([]byte, 1)
		w := NewWriter(buf, LittleEndian)
		// 1 + 0 + 101 + 101 packs LSB-first to 0b10110101.
		if err := w.WriteBit(true); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBit(false); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBits(0b101, 3); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBits(0b101, 3); err != nil {
			t.Fatal(err)
		}
		if buf[0] != 0xB5 {
			t.Errorf("expected 0xB5, got 0x%02X", buf[0])
		}
		if got := w.State(); got != Full {
			t.Errorf("expected Full, got %s", got)
		}
	})

	t.Run("UpperBitsMasked", func(t *testing.T) {
		buf := make([]byte, 1)
		w := NewWriter(buf, LittleEndian)
		if err := w.WriteBits(0xFF, 3); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if buf[0] != 0x07 {
			t.Errorf("expected masked 0x07, got 0x%02X", buf[0])
		}
	})

	t.Run("InvalidBitCount", func(t *testing.T) {
		w := NewWriter(make([]byte, 1), LittleEndian)
		if err := w.WriteBits(0, 0); !errors.Is(err, ErrBitCount) {
			t.Errorf("expected ErrBitCount, got %v", err)
		}
		if err := w.WriteBits(0, 9); !errors.Is(err, ErrBitCount) {
			t.Errorf("expected ErrBitCount, got %v", err)
		}
	})
}

func TestWriterBool(t *testing.T) {
	buf := make([]byte, 2)
	w := NewWriter(buf, LittleEndian)
	if err := w.WriteBool(true); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBool(false); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x01 || buf[1] != 0x00 {
		t.Errorf("expected 01 00, got % X", buf[:2])
	}

	r := NewReader([]byte{0x00, 0x2A}, LittleEndian)
	if v, _ := r.ReadBool(); v {
		t.Error("expected false for 0x00")
	}
	if v, _ := r.ReadBool(); !v {
		t.Error("expected true for nonzero byte")
	}
}

func TestWriterStrings(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf, LittleEndian)
	if err := w.WriteString("abc"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteLine("de"); err != nil {
		t.Fatal(err)
	}
	want := []byte{'a', 'b', 'c', 0x00, 'd', 'e', '\n'}
	if !bytes.Equal(buf[:7], want) {
		t.Errorf("expected % X, got % X", want, buf[:7])
	}
}

func TestWriterBitRoundTrips(t *testing.T) {
	for _, order := range []Endianness{LittleEndian, BigEndian} {
		buf := make([]byte, 16)
		w := NewWriter(buf, order)
		if err := w.WriteBits(0b11, 2); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint32(0xDEADBEEF); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBits(0b10101, 5); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint16(0x1234); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		r := NewReader(buf, order)
		if v, _ := r.ReadBits(2); v != 0b11 {
			t.Errorf("order %v: leading bits got 0b%b", order, v)
		}
		if v, _ := r.ReadUint32(); v != 0xDEADBEEF {
			t.Errorf("order %v: uint32 got 0x%08X", order, v)
		}
		if v, _ := r.ReadBits(5); v != 0b10101 {
			t.Errorf("order %v: mid bits got 0b%b", order, v)
		}
		if v, _ := r.ReadUint16(); v != 0x1234 {
			t.Errorf("order %v: uint16 got 0x%04X", order, v)
		}
	}
}

func TestWriterBitsFrom(t *testing.T) {
	buf := make([]byte, 2)
	w := NewWriter(buf, LittleEndian)
	if err := w.WriteBitsFrom([]byte{0xFF, 0x03}, 10); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xFF || buf[1] != 0x03 {
		t.Errorf("expected FF 03, got % X", buf)
	}

	r := NewReader(buf, LittleEndian)
	dst := make([]byte, 2)
	if err := r.ReadBitsInto(dst, 10); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 0xFF || dst[1] != 0x03 {
		t.Errorf("round trip got % X", dst)
	}
}

func TestWriterZeroCapacity(t *testing.T) {
	w := NewWriter(nil, LittleEndian)
	if got := w.State(); got != Full {
		t.Errorf("expected Full for empty buffer, got %s", got)
	}
	if err := w.WriteBit(true); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestWriterClone(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf, LittleEndian)
	if err := w.WriteUint8(0x11); err != nil {
		t.Fatal(err)
	}
	c := w.Clone()
	if err := c.WriteUint8(0x22); err != nil {
		t.Fatal(err)
	}
	if got := w.BitsWritten(); got != 8 {
		t.Errorf("original cursor moved: %d bits", got)
	}
	if got := c.BitsWritten(); got != 16 {
		t.Errorf("clone cursor: %d bits", got)
	}
}
