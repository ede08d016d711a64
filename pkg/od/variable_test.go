package od

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/coe-protocol/coe-go/pkg/stream"
)

func newTestVariable(t *testing.T, typ DataType, nElems int, attrs Access, data []byte) *VariableObject {
	t.Helper()
	v, err := NewVariable(VariableConfig{
		Name:       "testVar",
		Index:      0x2000,
		Type:       typ,
		NElements:  nElems,
		Attributes: attrs,
		Data:       data,
		Mutex:      &sync.Mutex{},
	})
	if err != nil {
		t.Fatalf("NewVariable failed: %v", err)
	}
	return v
}

func TestNewVariableValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  VariableConfig
		want error
	}{
		{
			name: "UnsupportedType",
			cfg:  VariableConfig{Type: TypeInteger24, NElements: 1, Data: []byte{0, 0, 0}},
			want: ErrDataTypeNotSupported,
		},
		{
			name: "ScalarWithMultipleElements",
			cfg:  VariableConfig{Type: TypeUnsigned16, NElements: 3, Data: make([]byte, 6)},
			want: ErrElementCount,
		},
		{
			name: "StringWithZeroElements",
			cfg:  VariableConfig{Type: TypeVisibleString, NElements: 0, Data: []byte{}},
			want: ErrElementCount,
		},
		{
			name: "NilStorage",
			cfg:  VariableConfig{Type: TypeUnsigned8, NElements: 1},
			want: ErrNilStorage,
		},
		{
			name: "StorageTooSmall",
			cfg:  VariableConfig{Type: TypeUnsigned32, NElements: 1, Data: []byte{0, 0}},
			want: ErrStorageTooSmall,
		},
		{
			name: "WritableWithoutMutex",
			cfg:  VariableConfig{Type: TypeUnsigned8, NElements: 1, Attributes: AccessReadWrite, Data: []byte{0}},
			want: ErrMutexRequired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVariable(tc.cfg)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	t.Run("ReadOnlyWithoutMutexIsValid", func(t *testing.T) {
		v, err := NewVariable(VariableConfig{
			Name: "ro", Type: TypeUnsigned8, NElements: 1,
			Attributes: AccessRead, Data: []byte{7},
		})
		if err != nil {
			t.Fatal(err)
		}
		// LockData still yields a usable locker.
		v.LockData().Lock()
		v.LockData().Unlock()
	})
}

func TestVariableReadWrite(t *testing.T) {
	data := []byte{0x34, 0x12}
	v := newTestVariable(t, TypeUnsigned16, 1, AccessReadWrite, data)

	t.Run("Read", func(t *testing.T) {
		buf := make([]byte, 2)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err := v.Read(0, AccessRead, w)
		if abort != AbortNone || err != nil {
			t.Fatalf("abort=%s err=%v", abort, err)
		}
		if !bytes.Equal(buf, []byte{0x34, 0x12}) {
			t.Errorf("got % X", buf)
		}
	})

	t.Run("Write", func(t *testing.T) {
		r := stream.NewReader([]byte{0x78, 0x56}, stream.LittleEndian)
		abort, err := v.Write(0, AccessWrite, r)
		if abort != AbortNone || err != nil {
			t.Fatalf("abort=%s err=%v", abort, err)
		}
		if !bytes.Equal(data, []byte{0x78, 0x56}) {
			t.Errorf("got % X", data)
		}
	})

	t.Run("NonZeroSubindex", func(t *testing.T) {
		w := stream.NewWriter(make([]byte, 2), stream.LittleEndian)
		abort, err := v.Read(1, AccessRead, w)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortSubindexDoesNotExist {
			t.Errorf("expected subindex-does-not-exist, got %s", abort)
		}
	})
}

func TestVariablePermissions(t *testing.T) {
	t.Run("WriteToReadOnly", func(t *testing.T) {
		data := []byte{0x01}
		v := newTestVariable(t, TypeUnsigned8, 1, AccessRead, data)
		r := stream.NewReader([]byte{0xFF}, stream.LittleEndian)
		abort, err := v.Write(0, AccessWrite, r)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortWriteOfReadOnly {
			t.Errorf("expected write-of-read-only, got %s", abort)
		}
		if data[0] != 0x01 {
			t.Error("rejected write modified storage")
		}
	})

	t.Run("ReadOfWriteOnly", func(t *testing.T) {
		v := newTestVariable(t, TypeUnsigned8, 1, AccessWrite, []byte{0x01})
		w := stream.NewWriter(make([]byte, 1), stream.LittleEndian)
		abort, err := v.Read(0, AccessRead, w)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortReadOfWriteOnly {
			t.Errorf("expected read-of-write-only, got %s", abort)
		}
	})

	t.Run("StateMaskMismatch", func(t *testing.T) {
		// Writable in PREOP only; an OP-state write must be rejected.
		v := newTestVariable(t, TypeUnsigned8, 1, AccessRead|AccessWrPreOp, []byte{0x01})
		r := stream.NewReader([]byte{0xFF}, stream.LittleEndian)
		abort, err := v.Write(0, AccessWrOp, r)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortWriteOfReadOnly {
			t.Errorf("expected write-of-read-only, got %s", abort)
		}
	})
}

func TestVariableWriteSizeMismatch(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	v := newTestVariable(t, TypeUnsigned16, 1, AccessReadWrite, data)

	t.Run("TooShort", func(t *testing.T) {
		r := stream.NewReader([]byte{0x01}, stream.LittleEndian)
		abort, err := v.Write(0, AccessWrite, r)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortDataTypeMismatchTooShort {
			t.Errorf("expected too-short, got %s", abort)
		}
	})

	t.Run("TooLong", func(t *testing.T) {
		r := stream.NewReader([]byte{0x01, 0x02, 0x03}, stream.LittleEndian)
		abort, err := v.Write(0, AccessWrite, r)
		if err != nil {
			t.Fatal(err)
		}
		if abort != AbortDataTypeMismatchTooLong {
			t.Errorf("expected too-long, got %s", abort)
		}
	})

	t.Run("ClosedReader", func(t *testing.T) {
		r := stream.NewReader([]byte{0x01, 0x02}, stream.LittleEndian)
		if err := r.Close(); err != nil {
			t.Fatal(err)
		}
		abort, err := v.Write(0, AccessWrite, r)
		if abort != AbortGeneralError {
			t.Errorf("expected general error, got %s", abort)
		}
		if !errors.Is(err, stream.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	// None of the rejected writes touched storage.
	if !bytes.Equal(data, []byte{0xAA, 0xBB}) {
		t.Errorf("rejected writes modified storage: % X", data)
	}
}

func TestVariableString(t *testing.T) {
	data := make([]byte, 8)
	copy(data, "hello")
	v := newTestVariable(t, TypeVisibleString, 8, AccessReadWrite, data)

	t.Run("ActualSize", func(t *testing.T) {
		n, err := v.ActualSize(0)
		if err != nil {
			t.Fatal(err)
		}
		if n != 5 {
			t.Errorf("expected 5, got %d", n)
		}
	})

	t.Run("ReadStreamsFullBuffer", func(t *testing.T) {
		buf := make([]byte, 8)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err := v.Read(0, AccessRead, w)
		if abort != AbortNone || err != nil {
			t.Fatalf("abort=%s err=%v", abort, err)
		}
		if string(buf[:5]) != "hello" {
			t.Errorf("got %q", buf)
		}
	})

	t.Run("BitSize", func(t *testing.T) {
		if got := v.SubindexBitSize(0); got != 64 {
			t.Errorf("expected 64 bits, got %d", got)
		}
	})
}

func TestVariableBooleanNativeBit1(t *testing.T) {
	data := []byte{0x00}
	v := newTestVariable(t, TypeBooleanNativeBit1, 1, AccessReadWrite, data)

	if got := v.DataType(0); got != TypeBoolean {
		t.Errorf("expected reported type boolean, got %s", got)
	}
	if got := v.SubindexBitSize(0); got != 1 {
		t.Errorf("expected 1 bit on the wire, got %d", got)
	}

	// A 1-bit value needs a reader holding exactly 1 remaining bit.
	data[0] = 0x00
	r := stream.NewReader([]byte{0x80}, stream.LittleEndian)
	if err := r.Skip(7); err != nil {
		t.Fatal(err)
	}
	abort, err := v.Write(0, AccessWrite, r)
	if abort != AbortNone || err != nil {
		t.Fatalf("abort=%s err=%v", abort, err)
	}
	if data[0]&0x01 != 0x01 {
		t.Errorf("expected bit 0 set, got 0x%02X", data[0])
	}

	// Reading emits a single bit.
	buf := make([]byte, 1)
	w := stream.NewWriter(buf, stream.LittleEndian)
	abort, err = v.Read(0, AccessRead, w)
	if abort != AbortNone || err != nil {
		t.Fatalf("abort=%s err=%v", abort, err)
	}
	if got := w.BitsWritten(); got != 1 {
		t.Errorf("expected 1 bit written, got %d", got)
	}
}

func TestVariablePlainBooleanStreamsFullByte(t *testing.T) {
	data := []byte{0x2A} // any nonzero byte reads back as true
	v := newTestVariable(t, TypeBoolean, 1, AccessReadWrite, data)

	if got := v.SubindexBitSize(0); got != 8 {
		t.Errorf("expected 8 bits, got %d", got)
	}
	buf := make([]byte, 1)
	w := stream.NewWriter(buf, stream.LittleEndian)
	abort, err := v.Read(0, AccessRead, w)
	if abort != AbortNone || err != nil {
		t.Fatalf("abort=%s err=%v", abort, err)
	}
	if buf[0] != 0x01 {
		t.Errorf("expected normalized 0x01, got 0x%02X", buf[0])
	}
}

func TestVariableCompleteAccessUnsupported(t *testing.T) {
	v := newTestVariable(t, TypeUnsigned8, 1, AccessReadWrite, []byte{0})
	w := stream.NewWriter(make([]byte, 4), stream.LittleEndian)
	if abort, _ := v.CompleteRead(true, false, AccessRead, w); abort != AbortUnsupportedAccess {
		t.Errorf("expected unsupported access, got %s", abort)
	}
	r := stream.NewReader([]byte{0, 0}, stream.LittleEndian)
	if abort, _ := v.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero); abort != AbortUnsupportedAccess {
		t.Errorf("expected unsupported access, got %s", abort)
	}
}

func TestVariableSetData(t *testing.T) {
	v := newTestVariable(t, TypeUnsigned16, 1, AccessReadWrite, []byte{0x01, 0x02})

	if err := v.SetData(nil); !errors.Is(err, ErrNilStorage) {
		t.Errorf("expected ErrNilStorage, got %v", err)
	}
	if err := v.SetData([]byte{0x01}); !errors.Is(err, ErrStorageTooSmall) {
		t.Errorf("expected ErrStorageTooSmall, got %v", err)
	}

	repl := []byte{0xEE, 0xFF}
	if err := v.SetData(repl); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 2)
	w := stream.NewWriter(buf, stream.LittleEndian)
	if abort, err := v.Read(0, AccessRead, w); abort != AbortNone || err != nil {
		t.Fatalf("abort=%s err=%v", abort, err)
	}
	if !bytes.Equal(buf, repl) {
		t.Errorf("read did not follow the repointed storage: % X", buf)
	}
}
