package od

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coe-protocol/coe-go/pkg/stream"
)

// motorRecord builds a record with a bit-packed control byte, a gap, a
// 16-bit velocity and an empty placeholder:
//
//	SI1 enable    bit1  @ byte0 bit0
//	SI2 mode      bit3  @ byte0 bit1
//	SI3 reserved  gap, 4 bits
//	SI4 velocity  u16   @ byte1
//	SI5 (empty)
func motorRecord(t *testing.T, notifier Notifier) (*RecordObject, []byte) {
	t.Helper()
	data := make([]byte, 3)
	rec, err := NewRecord(RecordConfig{
		Name:  "Motor control",
		Index: 0x7000,
		Subindices: []SubindexDesc{
			{Name: "Enable", Type: TypeBit1, Attributes: AccessReadWrite, NElements: 1, ByteOffset: 0, BitOffset: 0},
			{Name: "Mode", Type: TypeBit3, Attributes: AccessReadWrite, NElements: 1, ByteOffset: 0, BitOffset: 1},
			{Name: "Reserved", Type: TypeNull, NElements: 4},
			{Name: "Velocity", Type: TypeUnsigned16, Attributes: AccessReadWrite, NElements: 1, ByteOffset: 1},
			{},
		},
		NativeSize: 3,
		Data:       data,
		Mutex:      &sync.Mutex{},
		Notifier:   notifier,
	})
	require.NoError(t, err)
	return rec, data
}

func TestNewRecordValidation(t *testing.T) {
	base := func() RecordConfig {
		return RecordConfig{
			Name:       "r",
			Index:      0x7100,
			NativeSize: 4,
			Data:       make([]byte, 4),
			Mutex:      &sync.Mutex{},
		}
	}

	cases := []struct {
		name string
		desc []SubindexDesc
		want error
	}{
		{
			name: "UnsupportedType",
			desc: []SubindexDesc{{Name: "x", Type: TypeInteger24, Attributes: AccessRead, NElements: 1}},
			want: ErrDataTypeNotSupported,
		},
		{
			name: "BitOffsetOnByteType",
			desc: []SubindexDesc{{Name: "x", Type: TypeUnsigned8, Attributes: AccessRead, NElements: 1, BitOffset: 2}},
			want: ErrDescriptor,
		},
		{
			name: "BitFieldCrossingByte",
			desc: []SubindexDesc{{Name: "x", Type: TypeBit4, Attributes: AccessRead, NElements: 1, BitOffset: 6}},
			want: ErrDescriptor,
		},
		{
			name: "FieldOutsideNativeSize",
			desc: []SubindexDesc{{Name: "x", Type: TypeUnsigned32, Attributes: AccessRead, NElements: 1, ByteOffset: 2}},
			want: ErrDescriptor,
		},
		{
			name: "MultiElementNonString",
			desc: []SubindexDesc{{Name: "x", Type: TypeUnsigned8, Attributes: AccessRead, NElements: 2}},
			want: ErrElementCount,
		},
		{
			name: "UnnamedGap",
			desc: []SubindexDesc{{Type: TypeNull, NElements: 8}},
			want: ErrDescriptor,
		},
		{
			name: "EmptyWithAttributes",
			desc: []SubindexDesc{{Type: TypeNull, Attributes: AccessRead}},
			want: ErrDescriptor,
		},
		{
			name: "AdjacentGaps",
			desc: []SubindexDesc{
				{Name: "g1", Type: TypeNull, NElements: 4},
				{Name: "g2", Type: TypeNull, NElements: 4},
			},
			want: ErrDescriptor,
		},
		{
			name: "NoSubindices",
			desc: nil,
			want: ErrDescriptor,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			cfg.Subindices = tc.desc
			_, err := NewRecord(cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRecordMetadata(t *testing.T) {
	rec, _ := motorRecord(t, nil)

	assert.Equal(t, 6, rec.NumSubindices())
	assert.Equal(t, 6, rec.MaxNumSubindices())

	assert.Equal(t, TypeUnsigned8, rec.DataType(0))
	assert.Equal(t, AccessRead, rec.Attributes(0))
	assert.Equal(t, 8, rec.SubindexBitSize(0))

	assert.Equal(t, TypeBit1, rec.DataType(1))
	assert.Equal(t, 1, rec.SubindexBitSize(1))
	assert.Equal(t, 3, rec.SubindexBitSize(2))

	// Gap: typed null, declared width.
	assert.Equal(t, TypeNull, rec.DataType(3))
	assert.Equal(t, 4, rec.SubindexBitSize(3))
	assert.False(t, rec.IsSubindexEmpty(3))

	assert.Equal(t, TypeUnsigned16, rec.DataType(4))
	assert.Equal(t, "Velocity", rec.SubindexName(4))

	// Empty placeholder: zero width, flagged empty.
	assert.True(t, rec.IsSubindexEmpty(5))
	assert.Equal(t, 0, rec.SubindexBitSize(5))
}

func TestRecordReadWrite(t *testing.T) {
	rec, data := motorRecord(t, nil)

	t.Run("WriteVelocity", func(t *testing.T) {
		r := stream.NewReader([]byte{0x88, 0x13}, stream.LittleEndian)
		abort, err := rec.Write(4, AccessWrite, r)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		assert.Equal(t, []byte{0x00, 0x88, 0x13}, data)
	})

	t.Run("ReadVelocity", func(t *testing.T) {
		buf := make([]byte, 2)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err := rec.Read(4, AccessRead, w)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		assert.Equal(t, []byte{0x88, 0x13}, buf)
	})

	t.Run("BitFields", func(t *testing.T) {
		// Mode occupies bits 1..3 of byte 0. The candidate 0b101 sits in the
		// top three stream bits so exactly the value width remains.
		r := stream.NewReader([]byte{0b1010_0000}, stream.LittleEndian)
		require.NoError(t, r.Skip(5))
		abort, err := rec.Write(2, AccessWrite, r)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		assert.Equal(t, byte(0b0000_1010), data[0])

		buf := make([]byte, 1)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err = rec.Read(2, AccessRead, w)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		require.NoError(t, w.Close())
		assert.Equal(t, byte(0b101), buf[0])
	})

	t.Run("SI0", func(t *testing.T) {
		buf := make([]byte, 1)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err := rec.Read(0, AccessRead, w)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		assert.Equal(t, byte(5), buf[0])

		r := stream.NewReader([]byte{5}, stream.LittleEndian)
		abort, err = rec.Write(0, AccessWrite, r)
		require.NoError(t, err)
		assert.Equal(t, AbortWriteOfReadOnly, abort)
	})

	t.Run("EmptySubindex", func(t *testing.T) {
		w := stream.NewWriter(make([]byte, 1), stream.LittleEndian)
		abort, err := rec.Read(5, AccessRead, w)
		require.NoError(t, err)
		assert.Equal(t, AbortSubindexDoesNotExist, abort)

		r := stream.NewReader([]byte{0}, stream.LittleEndian)
		abort, err = rec.Write(5, AccessWrite, r)
		require.NoError(t, err)
		assert.Equal(t, AbortSubindexDoesNotExist, abort)
	})

	t.Run("BeyondTable", func(t *testing.T) {
		w := stream.NewWriter(make([]byte, 1), stream.LittleEndian)
		abort, err := rec.Read(6, AccessRead, w)
		require.NoError(t, err)
		assert.Equal(t, AbortSubindexDoesNotExist, abort)
	})
}

func TestRecordGap(t *testing.T) {
	rec, data := motorRecord(t, nil)
	// Junk in the gap's notional position must never leak out.
	data[0] = 0xFF

	t.Run("ReadsAsZero", func(t *testing.T) {
		buf := make([]byte, 1)
		w := stream.NewWriter(buf, stream.LittleEndian)
		abort, err := rec.Read(3, AccessRead, w)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		require.NoError(t, w.Close())
		assert.Equal(t, byte(0), buf[0])
	})

	t.Run("WriteDiscarded", func(t *testing.T) {
		before := append([]byte(nil), data...)
		r := stream.NewReader([]byte{0x0F}, stream.LittleEndian)
		require.NoError(t, r.Skip(4))
		abort, err := rec.Write(3, AccessWrite, r)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)
		assert.Equal(t, before, data, "gap write must not touch native storage")
	})

	// Gap descriptors carry no attributes, so no access mask may reject them.
	t.Run("IgnoresAccessMask", func(t *testing.T) {
		w := stream.NewWriter(make([]byte, 1), stream.LittleEndian)
		abort, err := rec.Read(3, AccessWrite, w)
		require.NoError(t, err)
		assert.Equal(t, AbortNone, abort)

		r := stream.NewReader([]byte{0xF0}, stream.LittleEndian)
		require.NoError(t, r.Skip(4))
		abort, err = rec.Write(3, AccessRead, r)
		require.NoError(t, err)
		assert.Equal(t, AbortNone, abort)
	})
}

func TestRecordWriteSizeMismatch(t *testing.T) {
	rec, data := motorRecord(t, nil)
	before := append([]byte(nil), data...)

	r := stream.NewReader([]byte{0x01, 0x02, 0x03}, stream.LittleEndian)
	abort, err := rec.Write(4, AccessWrite, r)
	require.NoError(t, err)
	assert.Equal(t, AbortDataTypeMismatchTooLong, abort)

	r = stream.NewReader([]byte{0x01}, stream.LittleEndian)
	abort, err = rec.Write(4, AccessWrite, r)
	require.NoError(t, err)
	assert.Equal(t, AbortDataTypeMismatchTooShort, abort)

	assert.Equal(t, before, data)
}

func TestRecordCompleteRead(t *testing.T) {
	rec, data := motorRecord(t, nil)
	data[0] = 0b0000_1011 // enable=1, mode=0b101
	data[1] = 0x88
	data[2] = 0x13

	// 8 (SI0) + 1 + 3 + 4 (gap) + 16 = 32 bits.
	buf := make([]byte, 4)
	w := stream.NewWriter(buf, stream.LittleEndian)
	abort, err := rec.CompleteRead(true, false, AccessRead, w)
	require.NoError(t, err)
	require.Equal(t, AbortNone, abort)

	assert.Equal(t, byte(5), buf[0])
	// enable and mode pack LSB-first, the gap reads as zero.
	assert.Equal(t, byte(0b0000_1011), buf[1])
	assert.Equal(t, byte(0x88), buf[2])
	assert.Equal(t, byte(0x13), buf[3])
}

func TestRecordCompleteWrite(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		notifier := &recordingNotifier{}
		rec, data := motorRecord(t, notifier)

		// SI0=5, enable=1, mode=0b010, gap junk=0b1111, velocity=0x2710.
		payload := []byte{5, 0b1111_0101, 0x10, 0x27}
		r := stream.NewReader(payload, stream.LittleEndian)
		abort, err := rec.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero)
		require.NoError(t, err)
		require.Equal(t, AbortNone, abort)

		assert.Equal(t, byte(0b0000_0101), data[0], "gap bits must be discarded")
		assert.Equal(t, byte(0x10), data[1])
		assert.Equal(t, byte(0x27), data[2])

		// One hook pair for the whole transfer.
		require.Len(t, notifier.writes, 1)
		assert.True(t, notifier.writes[0].completeAccess)
		require.Len(t, notifier.afters, 1)
	})

	t.Run("WrongSI0Rejected", func(t *testing.T) {
		rec, data := motorRecord(t, nil)
		before := append([]byte(nil), data...)
		r := stream.NewReader([]byte{4, 0, 0, 0}, stream.LittleEndian)
		abort, err := rec.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero)
		require.NoError(t, err)
		assert.Equal(t, AbortUnsupportedAccess, abort)
		assert.Equal(t, before, data)
	})

	t.Run("TrailingDataRejected", func(t *testing.T) {
		rec, _ := motorRecord(t, nil)
		r := stream.NewReader([]byte{5, 0, 0, 0, 0xEE}, stream.LittleEndian)
		abort, err := rec.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero)
		require.NoError(t, err)
		assert.Equal(t, AbortDataTypeMismatchTooLong, abort)
	})

	t.Run("ShortDataRejected", func(t *testing.T) {
		rec, _ := motorRecord(t, nil)
		r := stream.NewReader([]byte{5, 0}, stream.LittleEndian)
		abort, err := rec.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero)
		require.NoError(t, err)
		assert.Equal(t, AbortDataTypeMismatchTooShort, abort)
	})

	t.Run("VetoLeavesStorageUntouched", func(t *testing.T) {
		notifier := &recordingNotifier{beforeWriteAbort: AbortGeneralIncompatibility}
		rec, data := motorRecord(t, notifier)
		before := append([]byte(nil), data...)
		r := stream.NewReader([]byte{5, 0xFF, 0xFF, 0xFF}, stream.LittleEndian)
		abort, err := rec.CompleteWrite(true, false, AccessWrite, r, stream.ExactlyZero)
		require.NoError(t, err)
		assert.Equal(t, AbortGeneralIncompatibility, abort)
		assert.Equal(t, before, data)
		assert.Empty(t, notifier.afters)
	})
}

func TestRecordSI0As16Bit(t *testing.T) {
	rec, _ := motorRecord(t, nil)

	// 16 + 1 + 3 + 4 + 16 = 40 bits.
	buf := make([]byte, 5)
	w := stream.NewWriter(buf, stream.LittleEndian)
	abort, err := rec.CompleteRead(true, true, AccessRead, w)
	require.NoError(t, err)
	require.Equal(t, AbortNone, abort)
	assert.Equal(t, byte(5), buf[0])
	assert.Equal(t, byte(0), buf[1])

	r := stream.NewReader(buf, stream.LittleEndian)
	abort, err = rec.CompleteWrite(true, true, AccessWrite, r, stream.ExactlyZero)
	require.NoError(t, err)
	assert.Equal(t, AbortNone, abort)
}
