package od

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coe-protocol/coe-go/pkg/log"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// SubindexDesc describes one subindex of a RecordObject, mapped by byte/bit
// offset onto a caller-owned native aggregate.
//
// Two special kinds use TypeNull:
//   - gap: Name set, NElements holds the gap width in bits. A gap consumes
//     stream space on read and write but touches no native storage; it reads
//     as zero and discards writes.
//   - empty: Name empty, Attributes zero, NElements zero. An empty subindex
//     occupies a subindex number with zero stream width and reports
//     "subindex does not exist" to Read and Write.
type SubindexDesc struct {
	// Name is the subindex name. Empty only for empty subindices.
	Name string

	// Type is the subindex data type, or TypeNull for gaps and empties.
	Type DataType

	// Attributes is the subindex access mask.
	Attributes Access

	// NElements is the element count (>1 only for string types), the gap
	// width in bits for gaps, or 0 for empty subindices.
	NElements int

	// ByteOffset is the native byte offset of the field.
	ByteOffset int

	// BitOffset is the native bit offset within the byte at ByteOffset.
	// Must be 0 for non-bit types; for bit types 0..7 and the field must not
	// cross past the pointed-to byte.
	BitOffset uint8
}

// isGap reports whether the descriptor declares an alignment gap.
func (d *SubindexDesc) isGap() bool { return d.Type == TypeNull && d.NElements > 0 }

// isEmpty reports whether the descriptor declares an empty subindex.
func (d *SubindexDesc) isEmpty() bool { return d.Type == TypeNull && d.NElements == 0 }

// bitSize returns the stream width of the subindex in bits.
func (d *SubindexDesc) bitSize() int {
	if d.Type == TypeNull {
		return d.NElements // gap width in bits, 0 for empty
	}
	return d.Type.BitSize() * d.NElements
}

// RecordObject maps a fixed heterogeneous layout onto a caller-owned native
// aggregate through a descriptor table. The subindex count is fixed at
// construction; subindex 0 reports it read-only.
type RecordObject struct {
	object
	descs      []SubindexDesc
	nativeSize int
	data       []byte
}

// RecordConfig describes a RecordObject under construction.
type RecordConfig struct {
	// Name is the object name.
	Name string

	// Index is the dictionary index.
	Index uint16

	// Subindices describes subindices 1..N in order.
	Subindices []SubindexDesc

	// NativeSize is the declared size of the native aggregate in bytes.
	NativeSize int

	// Data is the caller-owned native aggregate.
	Data []byte

	// Mutex guards native storage. Required whenever any subindex carries
	// write permission.
	Mutex sync.Locker

	// Notifier receives access hooks; nil disables them.
	Notifier Notifier

	// Logger receives diagnostics events; nil disables them.
	Logger log.Logger
}

// NewRecord constructs a RecordObject and validates the descriptor table.
func NewRecord(cfg RecordConfig) (*RecordObject, error) {
	if len(cfg.Subindices) == 0 || len(cfg.Subindices) > 255 {
		return nil, fmt.Errorf("%w: %d subindices", ErrDescriptor, len(cfg.Subindices))
	}
	for i := range cfg.Subindices {
		if err := validateDesc(&cfg.Subindices[i], cfg.NativeSize); err != nil {
			return nil, fmt.Errorf("subindex %d: %w", i+1, err)
		}
		if i > 0 && cfg.Subindices[i].isGap() && cfg.Subindices[i-1].isGap() {
			return nil, fmt.Errorf("subindex %d: %w: adjacent gaps must be merged", i+1, ErrDescriptor)
		}
	}
	r := &RecordObject{
		object: object{
			name:     cfg.Name,
			index:    cfg.Index,
			mu:       cfg.Mutex,
			notifier: cfg.Notifier,
			logger:   cfg.Logger,
		},
		descs:      cfg.Subindices,
		nativeSize: cfg.NativeSize,
	}
	attrs := make([]Access, 0, len(cfg.Subindices))
	for i := range cfg.Subindices {
		attrs = append(attrs, cfg.Subindices[i].Attributes)
	}
	if err := r.requireMutex(attrs...); err != nil {
		return nil, err
	}
	if err := r.SetData(cfg.Data); err != nil {
		return nil, err
	}
	return r, nil
}

func validateDesc(d *SubindexDesc, nativeSize int) error {
	if d.Type == TypeNull {
		if d.ByteOffset != 0 || d.BitOffset != 0 {
			return fmt.Errorf("%w: gap/empty offsets must be zero", ErrDescriptor)
		}
		if d.isEmpty() {
			if d.Name != "" || d.Attributes != 0 {
				return fmt.Errorf("%w: empty subindex must have no name and no attributes", ErrDescriptor)
			}
			return nil
		}
		// gap
		if d.Name == "" {
			return fmt.Errorf("%w: gap must be named", ErrDescriptor)
		}
		return nil
	}
	if !d.Type.Supported() {
		return fmt.Errorf("%w: %s", ErrDataTypeNotSupported, d.Type)
	}
	if d.NElements < 1 {
		return fmt.Errorf("%w: zero elements", ErrElementCount)
	}
	if d.NElements > 1 && !d.Type.IsString() {
		return fmt.Errorf("%w: multiple elements on non-string type %s", ErrElementCount, d.Type)
	}
	if d.Type.IsBitField() {
		if d.BitOffset > 7 {
			return fmt.Errorf("%w: bit offset %d", ErrDescriptor, d.BitOffset)
		}
		if int(d.BitOffset)+d.Type.BitSize() > 8 {
			return fmt.Errorf("%w: bit field crosses byte boundary", ErrDescriptor)
		}
		if d.ByteOffset >= nativeSize {
			return fmt.Errorf("%w: offset outside native aggregate", ErrDescriptor)
		}
		return nil
	}
	if d.BitOffset != 0 {
		return fmt.Errorf("%w: bit offset on non-bit type %s", ErrDescriptor, d.Type)
	}
	if d.ByteOffset+nativeSpan(d.Type, d.NElements) > nativeSize {
		return fmt.Errorf("%w: field extends outside native aggregate", ErrDescriptor)
	}
	return nil
}

// SetData repoints the native aggregate. Out-of-protocol management call; the
// caller must hold the data lock.
func (rec *RecordObject) SetData(data []byte) error {
	if data == nil {
		return ErrNilStorage
	}
	if len(data) < rec.nativeSize {
		return ErrStorageTooSmall
	}
	rec.data = data
	rec.logAccess(log.OpSetData, 0, false, AbortNone, 0, nil)
	return nil
}

// desc returns the descriptor for subindex si (1-based), or nil.
func (rec *RecordObject) desc(si uint8) *SubindexDesc {
	if si == 0 || int(si) > len(rec.descs) {
		return nil
	}
	return &rec.descs[si-1]
}

// DataType returns Unsigned8 for subindex 0 and the protocol-visible type of
// other subindices. Gaps and empties report TypeNull.
func (rec *RecordObject) DataType(subindex uint8) DataType {
	if subindex == 0 {
		return TypeUnsigned8
	}
	d := rec.desc(subindex)
	if d == nil {
		return TypeNull
	}
	return d.Type.Reported()
}

// Attributes returns the access mask of a subindex. Subindex 0 is fixed
// read-only.
func (rec *RecordObject) Attributes(subindex uint8) Access {
	if subindex == 0 {
		return AccessRead
	}
	d := rec.desc(subindex)
	if d == nil {
		return 0
	}
	return d.Attributes
}

// SubindexName returns the subindex name.
func (rec *RecordObject) SubindexName(subindex uint8) string {
	if subindex == 0 {
		return "Number of entries"
	}
	d := rec.desc(subindex)
	if d == nil {
		return ""
	}
	return d.Name
}

// NumSubindices returns the fixed subindex count including subindex 0.
func (rec *RecordObject) NumSubindices() int { return len(rec.descs) + 1 }

// MaxNumSubindices equals NumSubindices; records are fixed.
func (rec *RecordObject) MaxNumSubindices() int { return rec.NumSubindices() }

// IsSubindexEmpty reports whether the subindex is an intentionally-empty
// placeholder.
func (rec *RecordObject) IsSubindexEmpty(subindex uint8) bool {
	d := rec.desc(subindex)
	return d != nil && d.isEmpty()
}

// SubindexBitSize returns the stream width of a subindex in bits. Gaps
// report their declared width; empty subindices report 0.
func (rec *RecordObject) SubindexBitSize(subindex uint8) int {
	if subindex == 0 {
		return 8
	}
	d := rec.desc(subindex)
	if d == nil {
		return 0
	}
	return d.bitSize()
}

// ActualSize returns the current content size of a subindex in bytes.
func (rec *RecordObject) ActualSize(subindex uint8) (int, error) {
	d := rec.desc(subindex)
	if subindex != 0 && (d == nil || d.isEmpty()) {
		return 0, Abort{Index: rec.index, Subindex: subindex, Code: AbortSubindexDoesNotExist}
	}
	if subindex == 0 || d.Type != TypeVisibleString {
		return (rec.SubindexBitSize(subindex) + 7) / 8, nil
	}
	switch code := beforeRead(rec.notifier, rec, subindex, false, true); code {
	case AbortNone:
	case AbortOutOfMemory:
		return 0, ErrOutOfMemory
	default:
		return 0, fmt.Errorf("%w: %s", ErrHookRejected, code)
	}
	return strLen(rec.data[d.ByteOffset : d.ByteOffset+d.NElements]), nil
}

// bitPos returns the absolute native bit position of a field descriptor.
func (d *SubindexDesc) bitPos() int { return d.ByteOffset*8 + int(d.BitOffset) }

// writeZeroBits streams nBits zero bits to w.
func writeZeroBits(w *stream.Writer, nBits int) error {
	zeros := make([]byte, (nBits+7)/8)
	return w.WriteBitsFrom(zeros, nBits)
}

// Read streams the value of one subindex to w. Gap subindices read as zero
// regardless of native memory contents.
func (rec *RecordObject) Read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	abort, err := rec.read(subindex, access, w)
	rec.logAccess(log.OpRead, subindex, false, abort, rec.SubindexBitSize(subindex), err)
	return abort, err
}

func (rec *RecordObject) read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	if subindex == 0 {
		if !AccessRead.CanRead(access) {
			return AbortReadOfWriteOnly, nil
		}
		if err := writerUsable(w); err != nil {
			return AbortGeneralError, err
		}
		if code := beforeRead(rec.notifier, rec, 0, false, false); code != AbortNone {
			return code, nil
		}
		if err := w.WriteUint8(uint8(len(rec.descs))); err != nil {
			return AbortGeneralError, err
		}
		return AbortNone, nil
	}
	d := rec.desc(subindex)
	if d == nil || d.isEmpty() {
		return AbortSubindexDoesNotExist, nil
	}
	// Gaps carry no attributes; they are readable and writable by anyone.
	if !d.isGap() && !d.Attributes.CanRead(access) {
		return AbortReadOfWriteOnly, nil
	}
	if err := writerUsable(w); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeRead(rec.notifier, rec, subindex, false, false); code != AbortNone {
		return code, nil
	}
	if d.isGap() {
		if err := writeZeroBits(w, d.NElements); err != nil {
			return AbortGeneralError, err
		}
		return AbortNone, nil
	}
	if err := streamOutElements(w, d.Type, d.NElements, rec.data, d.bitPos()); err != nil {
		return AbortGeneralError, err
	}
	return AbortNone, nil
}

// Write decodes one subindex value from r and commits it. Writes to gap
// subindices are accepted and discarded.
func (rec *RecordObject) Write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	abort, err := rec.write(subindex, access, r)
	rec.logAccess(log.OpWrite, subindex, false, abort, rec.SubindexBitSize(subindex), err)
	return abort, err
}

func (rec *RecordObject) write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	if subindex == 0 {
		return AbortWriteOfReadOnly, nil
	}
	d := rec.desc(subindex)
	if d == nil || d.isEmpty() {
		return AbortSubindexDoesNotExist, nil
	}
	if !d.isGap() && !d.Attributes.CanWrite(access) {
		return AbortWriteOfReadOnly, nil
	}
	if err := readerUsable(r); err != nil {
		return AbortGeneralError, err
	}
	width := d.bitSize()
	if remaining := r.RemainingBits(); remaining < width {
		return AbortDataTypeMismatchTooShort, nil
	} else if remaining > width {
		return AbortDataTypeMismatchTooLong, nil
	}

	if d.isGap() {
		if err := r.Skip(d.NElements); err != nil {
			return AbortGeneralError, err
		}
		if code := beforeWrite(rec.notifier, rec, subindex, false, uint8(len(rec.descs)), nil); code != AbortNone {
			return code, nil
		}
		runAfterWrite(rec.notifier, rec.logger, rec, subindex, false)
		return AbortNone, nil
	}

	preview := make([]byte, rec.nativeSize)
	copy(preview, rec.data[:rec.nativeSize])
	if err := streamInElements(r, d.Type, d.NElements, preview, d.bitPos()); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeWrite(rec.notifier, rec, subindex, false, uint8(len(rec.descs)), preview); code != AbortNone {
		return code, nil
	}
	copy(rec.data[:rec.nativeSize], preview)
	runAfterWrite(rec.notifier, rec.logger, rec, subindex, false)
	return AbortNone, nil
}

// completeBits returns the total stream width of a complete transfer. Empty
// subindices contribute nothing; gaps contribute their declared width.
func (rec *RecordObject) completeBits(includeSI0, si0As16Bit bool) int {
	bits := 0
	if includeSI0 {
		bits = 8
		if si0As16Bit {
			bits = 16
		}
	}
	for i := range rec.descs {
		bits += rec.descs[i].bitSize()
	}
	return bits
}

// CompleteRead streams every subindex in one pass, skipping empty ones.
func (rec *RecordObject) CompleteRead(includeSI0, si0As16Bit bool, access Access, w *stream.Writer) (AbortCode, error) {
	abort, err := rec.completeRead(includeSI0, si0As16Bit, access, w)
	rec.logAccess(log.OpCompleteRead, 0, true, abort, rec.completeBits(includeSI0, si0As16Bit), err)
	return abort, err
}

func (rec *RecordObject) completeRead(includeSI0, si0As16Bit bool, access Access, w *stream.Writer) (AbortCode, error) {
	for i := range rec.descs {
		d := &rec.descs[i]
		if d.isEmpty() || d.isGap() {
			continue
		}
		if !d.Attributes.CanRead(access) {
			return AbortReadOfWriteOnly, nil
		}
	}
	if err := writerUsable(w); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeRead(rec.notifier, rec, 0, true, false); code != AbortNone {
		return code, nil
	}
	if includeSI0 {
		n := uint8(len(rec.descs))
		if si0As16Bit {
			if err := w.WriteUint16(uint16(n)); err != nil {
				return AbortGeneralError, err
			}
		} else if err := w.WriteUint8(n); err != nil {
			return AbortGeneralError, err
		}
	}
	for i := range rec.descs {
		d := &rec.descs[i]
		switch {
		case d.isEmpty():
			// zero width, skipped
		case d.isGap():
			if err := writeZeroBits(w, d.NElements); err != nil {
				return AbortGeneralError, err
			}
		default:
			if err := streamOutElements(w, d.Type, d.NElements, rec.data, d.bitPos()); err != nil {
				return AbortGeneralError, err
			}
		}
	}
	return AbortNone, nil
}

// CompleteWrite decodes every subindex in one pass and commits them under a
// single BeforeWrite/AfterWrite hook pair.
func (rec *RecordObject) CompleteWrite(includeSI0, si0As16Bit bool, access Access, r *stream.Reader, expect stream.RemainingBits) (AbortCode, error) {
	abort, err := rec.completeWrite(includeSI0, si0As16Bit, access, r, expect)
	rec.logAccess(log.OpCompleteWrite, 0, true, abort, rec.completeBits(includeSI0, si0As16Bit), err)
	return abort, err
}

func (rec *RecordObject) completeWrite(includeSI0, si0As16Bit bool, access Access, r *stream.Reader, expect stream.RemainingBits) (AbortCode, error) {
	for i := range rec.descs {
		d := &rec.descs[i]
		if d.isEmpty() || d.isGap() {
			continue
		}
		if !d.Attributes.CanWrite(access) {
			return AbortWriteOfReadOnly, nil
		}
	}
	if err := readerUsable(r); err != nil {
		return AbortGeneralError, err
	}

	total := rec.completeBits(includeSI0, si0As16Bit)
	if r.RemainingBits() < total {
		return AbortDataTypeMismatchTooShort, nil
	}

	if includeSI0 {
		var v uint16
		if si0As16Bit {
			v16, err := r.ReadUint16()
			if err != nil {
				return AbortGeneralError, err
			}
			v = v16
		} else {
			v8, err := r.ReadUint8()
			if err != nil {
				return AbortGeneralError, err
			}
			v = uint16(v8)
		}
		// The record layout is fixed; subindex 0 cannot be changed.
		if v != uint16(len(rec.descs)) {
			return AbortUnsupportedAccess, nil
		}
	}

	preview := make([]byte, rec.nativeSize)
	copy(preview, rec.data[:rec.nativeSize])
	for i := range rec.descs {
		d := &rec.descs[i]
		switch {
		case d.isEmpty():
			// zero width, skipped
		case d.isGap():
			if err := r.Skip(d.NElements); err != nil {
				return AbortGeneralError, err
			}
		default:
			if err := streamInElements(r, d.Type, d.NElements, preview, d.bitPos()); err != nil {
				return AbortGeneralError, err
			}
		}
	}
	if err := r.EnsureAllDataConsumed(expect); err != nil {
		if errors.Is(err, stream.ErrRemainingBits) {
			return AbortDataTypeMismatchTooLong, nil
		}
		return AbortGeneralError, err
	}

	if code := beforeWrite(rec.notifier, rec, 0, true, uint8(len(rec.descs)), preview); code != AbortNone {
		return code, nil
	}
	copy(rec.data[:rec.nativeSize], preview)
	runAfterWrite(rec.notifier, rec.logger, rec, 0, true)
	return AbortNone, nil
}

// Compile-time interface satisfaction check.
var _ Entry = (*RecordObject)(nil)
