package od

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coe-protocol/coe-go/pkg/log"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// ArrayObject exposes a variable-length homogeneous array. Subindex 0 holds
// the element count, bounded by configured min/max; subindices 1..count are
// the elements. Changing the count downward makes trailing native elements
// logically inaccessible without clearing them; changing it upward exposes
// previously-unused native storage as-is.
type ArrayObject struct {
	object
	typ       DataType
	si0Attrs  Access
	elemAttrs Access
	min, max  uint8
	count     uint8
	data      []byte
}

// ArrayConfig describes an ArrayObject under construction.
type ArrayConfig struct {
	// Name is the object name.
	Name string

	// Index is the dictionary index.
	Index uint16

	// Type is the element data type. String types are not supported in
	// arrays.
	Type DataType

	// SI0Attributes is the access mask of the count subindex. Write
	// permission here makes the element count protocol-writable.
	SI0Attributes Access

	// ElementAttributes is the access mask shared by all elements.
	ElementAttributes Access

	// MinElements and MaxElements bound the element count.
	MinElements, MaxElements uint8

	// Count is the initial element count.
	Count uint8

	// Data is the caller-owned native storage. It must hold MaxElements
	// elements so count growth never outruns it.
	Data []byte

	// Mutex guards native storage. Required whenever any write permission
	// exists on subindex 0 or the elements.
	Mutex sync.Locker

	// Notifier receives access hooks; nil disables them.
	Notifier Notifier

	// Logger receives diagnostics events; nil disables them.
	Logger log.Logger
}

// NewArray constructs an ArrayObject.
func NewArray(cfg ArrayConfig) (*ArrayObject, error) {
	if !cfg.Type.Supported() || cfg.Type.IsString() {
		return nil, fmt.Errorf("%w: %s", ErrDataTypeNotSupported, cfg.Type)
	}
	if cfg.MinElements > cfg.MaxElements {
		return nil, fmt.Errorf("%w: min %d > max %d", ErrCountOutOfRange, cfg.MinElements, cfg.MaxElements)
	}
	a := &ArrayObject{
		object: object{
			name:     cfg.Name,
			index:    cfg.Index,
			mu:       cfg.Mutex,
			notifier: cfg.Notifier,
			logger:   cfg.Logger,
		},
		typ:       cfg.Type,
		si0Attrs:  cfg.SI0Attributes,
		elemAttrs: cfg.ElementAttributes,
		min:       cfg.MinElements,
		max:       cfg.MaxElements,
	}
	if err := a.requireMutex(cfg.SI0Attributes, cfg.ElementAttributes); err != nil {
		return nil, err
	}
	if err := a.SetData(cfg.Count, cfg.Data); err != nil {
		return nil, err
	}
	return a, nil
}

// SetData atomically replaces the backing storage and the element count.
// Out-of-protocol management call: it succeeds within the configured bounds
// even when subindex 0 carries no write permission. The caller must hold the
// data lock.
func (a *ArrayObject) SetData(count uint8, data []byte) error {
	if count < a.min || count > a.max {
		return fmt.Errorf("%w: %d outside [%d,%d]", ErrCountOutOfRange, count, a.min, a.max)
	}
	if data == nil {
		return ErrNilStorage
	}
	if len(data) < nativeSpan(a.typ, int(a.max)) {
		return ErrStorageTooSmall
	}
	a.count = count
	a.data = data
	a.logAccess(log.OpSetData, 0, false, AbortNone, 0, nil)
	return nil
}

// Count returns the current element count.
func (a *ArrayObject) Count() uint8 { return a.count }

// Bounds returns the configured count bounds.
func (a *ArrayObject) Bounds() (min, max uint8) { return a.min, a.max }

// DataType returns Unsigned8 for subindex 0 and the element type for
// subindices 1..count.
func (a *ArrayObject) DataType(subindex uint8) DataType {
	switch {
	case subindex == 0:
		return TypeUnsigned8
	case subindex <= a.count:
		return a.typ.Reported()
	default:
		return TypeNull
	}
}

// Attributes returns the access mask of a subindex.
func (a *ArrayObject) Attributes(subindex uint8) Access {
	switch {
	case subindex == 0:
		return a.si0Attrs
	case subindex <= a.count:
		return a.elemAttrs
	default:
		return 0
	}
}

// SubindexName names subindex 0 and the elements.
func (a *ArrayObject) SubindexName(subindex uint8) string {
	switch {
	case subindex == 0:
		return "Number of entries"
	case subindex <= a.count:
		return fmt.Sprintf("%s[%d]", a.name, subindex)
	default:
		return ""
	}
}

// NumSubindices returns count+1.
func (a *ArrayObject) NumSubindices() int { return int(a.count) + 1 }

// MaxNumSubindices returns max+1.
func (a *ArrayObject) MaxNumSubindices() int { return int(a.max) + 1 }

// IsSubindexEmpty returns false; arrays have no empty subindices.
func (a *ArrayObject) IsSubindexEmpty(uint8) bool { return false }

// SubindexBitSize returns 8 for subindex 0 and the element width for
// subindices 1..count.
func (a *ArrayObject) SubindexBitSize(subindex uint8) int {
	switch {
	case subindex == 0:
		return 8
	case subindex <= a.count:
		return a.typ.BitSize()
	default:
		return 0
	}
}

// ActualSize returns the content size of a subindex in bytes.
func (a *ArrayObject) ActualSize(subindex uint8) (int, error) {
	if subindex > a.count {
		return 0, Abort{Index: a.index, Subindex: subindex, Code: AbortSubindexDoesNotExist}
	}
	return (a.SubindexBitSize(subindex) + 7) / 8, nil
}

// elemBitPos returns the native bit position of element subindex si (1-based).
func (a *ArrayObject) elemBitPos(si uint8) int {
	if a.typ.IsBitField() {
		return int(si-1) * a.typ.BitSize()
	}
	return int(si-1) * a.typ.NativeByteSize() * 8
}

// Read streams the count (subindex 0) or one element to w.
func (a *ArrayObject) Read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	abort, err := a.read(subindex, access, w)
	a.logAccess(log.OpRead, subindex, false, abort, a.SubindexBitSize(subindex), err)
	return abort, err
}

func (a *ArrayObject) read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	if subindex > a.count {
		return AbortSubindexDoesNotExist, nil
	}
	if !a.Attributes(subindex).CanRead(access) {
		return AbortReadOfWriteOnly, nil
	}
	if err := writerUsable(w); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeRead(a.notifier, a, subindex, false, false); code != AbortNone {
		return code, nil
	}
	if subindex == 0 {
		if err := w.WriteUint8(a.count); err != nil {
			return AbortGeneralError, err
		}
		return AbortNone, nil
	}
	if err := streamOutScalar(w, a.typ, a.data, a.elemBitPos(subindex)); err != nil {
		return AbortGeneralError, err
	}
	return AbortNone, nil
}

// Write decodes the count (subindex 0) or one element from r and commits it.
func (a *ArrayObject) Write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	abort, err := a.write(subindex, access, r)
	a.logAccess(log.OpWrite, subindex, false, abort, a.SubindexBitSize(subindex), err)
	return abort, err
}

func (a *ArrayObject) write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	if subindex > a.count {
		return AbortSubindexDoesNotExist, nil
	}
	if !a.Attributes(subindex).CanWrite(access) {
		return AbortWriteOfReadOnly, nil
	}
	if err := readerUsable(r); err != nil {
		return AbortGeneralError, err
	}
	width := a.SubindexBitSize(subindex)
	if remaining := r.RemainingBits(); remaining < width {
		return AbortDataTypeMismatchTooShort, nil
	} else if remaining > width {
		return AbortDataTypeMismatchTooLong, nil
	}

	if subindex == 0 {
		newCount, err := r.ReadUint8()
		if err != nil {
			return AbortGeneralError, err
		}
		if newCount < a.min {
			return AbortValueTooLow, nil
		}
		if newCount > a.max {
			return AbortValueTooHigh, nil
		}
		if code := beforeWrite(a.notifier, a, 0, false, newCount, []byte{newCount}); code != AbortNone {
			return code, nil
		}
		a.count = newCount
		runAfterWrite(a.notifier, a.logger, a, 0, false)
		return AbortNone, nil
	}

	span := nativeSpan(a.typ, int(a.max))
	preview := make([]byte, span)
	copy(preview, a.data[:span])
	if err := streamInScalar(r, a.typ, preview, a.elemBitPos(subindex)); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeWrite(a.notifier, a, subindex, false, a.count, preview); code != AbortNone {
		return code, nil
	}
	copy(a.data[:span], preview)
	runAfterWrite(a.notifier, a.logger, a, subindex, false)
	return AbortNone, nil
}

// CompleteRead streams the count and all elements in one pass.
func (a *ArrayObject) CompleteRead(includeSI0, si0As16Bit bool, access Access, w *stream.Writer) (AbortCode, error) {
	abort, err := a.completeRead(includeSI0, si0As16Bit, access, w)
	a.logAccess(log.OpCompleteRead, 0, true, abort, a.completeBits(includeSI0, si0As16Bit, a.count), err)
	return abort, err
}

func (a *ArrayObject) completeBits(includeSI0, si0As16Bit bool, count uint8) int {
	bits := 0
	if includeSI0 {
		bits = 8
		if si0As16Bit {
			bits = 16
		}
	}
	return bits + int(count)*a.typ.BitSize()
}

func (a *ArrayObject) completeRead(includeSI0, si0As16Bit bool, access Access, w *stream.Writer) (AbortCode, error) {
	if includeSI0 && !a.si0Attrs.CanRead(access) {
		return AbortReadOfWriteOnly, nil
	}
	if a.count > 0 && !a.elemAttrs.CanRead(access) {
		return AbortReadOfWriteOnly, nil
	}
	if err := writerUsable(w); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeRead(a.notifier, a, 0, true, false); code != AbortNone {
		return code, nil
	}
	if includeSI0 {
		if si0As16Bit {
			if err := w.WriteUint16(uint16(a.count)); err != nil {
				return AbortGeneralError, err
			}
		} else if err := w.WriteUint8(a.count); err != nil {
			return AbortGeneralError, err
		}
	}
	if err := streamOutElements(w, a.typ, int(a.count), a.data, 0); err != nil {
		return AbortGeneralError, err
	}
	return AbortNone, nil
}

// CompleteWrite decodes the count and all elements in one pass and commits
// them atomically under a single BeforeWrite/AfterWrite hook pair.
func (a *ArrayObject) CompleteWrite(includeSI0, si0As16Bit bool, access Access, r *stream.Reader, expect stream.RemainingBits) (AbortCode, error) {
	abort, err := a.completeWrite(includeSI0, si0As16Bit, access, r, expect)
	a.logAccess(log.OpCompleteWrite, 0, true, abort, 0, err)
	return abort, err
}

func (a *ArrayObject) completeWrite(includeSI0, si0As16Bit bool, access Access, r *stream.Reader, expect stream.RemainingBits) (AbortCode, error) {
	if err := readerUsable(r); err != nil {
		return AbortGeneralError, err
	}

	newCount := a.count
	si0Writable := a.si0Attrs.CanWrite(access)
	if includeSI0 {
		si0Bits := 8
		if si0As16Bit {
			si0Bits = 16
		}
		if r.RemainingBits() < si0Bits {
			return AbortDataTypeMismatchTooShort, nil
		}
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
		if v > 0xFF {
			return AbortValueTooHigh, nil
		}
		newCount = uint8(v)
		if newCount < a.min {
			return AbortValueTooLow, nil
		}
		if newCount > a.max {
			return AbortValueTooHigh, nil
		}
		// A protocol write may not change the count through a read-only
		// subindex 0.
		if !si0Writable && newCount != a.count {
			return AbortUnsupportedAccess, nil
		}
	}

	if newCount > 0 && !a.elemAttrs.CanWrite(access) {
		return AbortWriteOfReadOnly, nil
	}

	elemBits := int(newCount) * a.typ.BitSize()
	if r.RemainingBits() < elemBits {
		return AbortDataTypeMismatchTooShort, nil
	}

	span := nativeSpan(a.typ, int(a.max))
	preview := make([]byte, span)
	copy(preview, a.data[:span])
	if err := streamInElements(r, a.typ, int(newCount), preview, 0); err != nil {
		return AbortGeneralError, err
	}
	if err := r.EnsureAllDataConsumed(expect); err != nil {
		if errors.Is(err, stream.ErrRemainingBits) {
			return AbortDataTypeMismatchTooLong, nil
		}
		return AbortGeneralError, err
	}

	if code := beforeWrite(a.notifier, a, 0, true, newCount, preview); code != AbortNone {
		return code, nil
	}
	a.count = newCount
	copy(a.data[:span], preview)
	runAfterWrite(a.notifier, a.logger, a, 0, true)
	return AbortNone, nil
}

// Compile-time interface satisfaction check.
var _ Entry = (*ArrayObject)(nil)
