package od

import (
	"fmt"
	"sync"

	"github.com/coe-protocol/coe-go/pkg/log"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// VariableObject exposes one native scalar, fixed-size array, or string
// buffer behind subindex 0.
type VariableObject struct {
	object
	typ    DataType
	nElems int
	attrs  Access
	data   []byte
}

// VariableConfig describes a VariableObject under construction.
type VariableConfig struct {
	// Name is the object name.
	Name string

	// Index is the dictionary index.
	Index uint16

	// Type is the data type of the value. TypeBooleanNativeBit1 stores bit 0
	// of a native byte and reports TypeBoolean to the protocol.
	Type DataType

	// NElements must be 1 for scalar types and >0 for string types.
	NElements int

	// Attributes is the access mask of subindex 0.
	Attributes Access

	// Data is the caller-owned native storage; it is never freed or
	// reallocated by the object.
	Data []byte

	// Mutex guards native storage. Required whenever Attributes carries any
	// write permission.
	Mutex sync.Locker

	// Notifier receives access hooks; nil disables them.
	Notifier Notifier

	// Logger receives diagnostics events; nil disables them.
	Logger log.Logger
}

// NewVariable constructs a VariableObject.
func NewVariable(cfg VariableConfig) (*VariableObject, error) {
	if !cfg.Type.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrDataTypeNotSupported, cfg.Type)
	}
	if cfg.Type.IsString() {
		if cfg.NElements < 1 {
			return nil, fmt.Errorf("%w: string type needs NElements > 0", ErrElementCount)
		}
	} else if cfg.NElements != 1 {
		return nil, fmt.Errorf("%w: scalar type needs NElements == 1", ErrElementCount)
	}
	if cfg.Data == nil {
		return nil, ErrNilStorage
	}
	v := &VariableObject{
		object: object{
			name:     cfg.Name,
			index:    cfg.Index,
			mu:       cfg.Mutex,
			notifier: cfg.Notifier,
			logger:   cfg.Logger,
		},
		typ:    cfg.Type,
		nElems: cfg.NElements,
		attrs:  cfg.Attributes,
	}
	if err := v.requireMutex(cfg.Attributes); err != nil {
		return nil, err
	}
	if err := v.SetData(cfg.Data); err != nil {
		return nil, err
	}
	return v, nil
}

// SetData repoints the native storage. Out-of-protocol management call; the
// caller must hold the data lock.
func (v *VariableObject) SetData(data []byte) error {
	if data == nil {
		return ErrNilStorage
	}
	if len(data) < nativeSpan(v.typ, v.nElems) {
		return ErrStorageTooSmall
	}
	v.data = data
	v.logAccess(log.OpSetData, 0, false, AbortNone, 0, nil)
	return nil
}

// DataType returns the protocol-visible type of subindex 0.
func (v *VariableObject) DataType(subindex uint8) DataType {
	if subindex != 0 {
		return TypeNull
	}
	return v.typ.Reported()
}

// Attributes returns the access mask of subindex 0.
func (v *VariableObject) Attributes(subindex uint8) Access {
	if subindex != 0 {
		return 0
	}
	return v.attrs
}

// SubindexName returns the object name for subindex 0.
func (v *VariableObject) SubindexName(subindex uint8) string {
	if subindex != 0 {
		return ""
	}
	return v.name
}

// NumSubindices returns 1.
func (v *VariableObject) NumSubindices() int { return 1 }

// MaxNumSubindices returns 1.
func (v *VariableObject) MaxNumSubindices() int { return 1 }

// IsSubindexEmpty returns false; variables have no empty subindices.
func (v *VariableObject) IsSubindexEmpty(uint8) bool { return false }

// SubindexBitSize returns the stream width of subindex 0.
func (v *VariableObject) SubindexBitSize(subindex uint8) int {
	if subindex != 0 {
		return 0
	}
	return v.typ.BitSize() * v.nElems
}

// ActualSize returns the current content size in bytes. For visible_string
// data this is the current string length.
func (v *VariableObject) ActualSize(subindex uint8) (int, error) {
	if subindex != 0 {
		return 0, Abort{Index: v.index, Subindex: subindex, Code: AbortSubindexDoesNotExist}
	}
	if v.typ != TypeVisibleString {
		return (v.SubindexBitSize(0) + 7) / 8, nil
	}
	switch code := beforeRead(v.notifier, v, 0, false, true); code {
	case AbortNone:
	case AbortOutOfMemory:
		return 0, ErrOutOfMemory
	default:
		return 0, fmt.Errorf("%w: %s", ErrHookRejected, code)
	}
	return strLen(v.data[:v.nElems]), nil
}

// Read streams the value of subindex 0 to w.
func (v *VariableObject) Read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	abort, err := v.read(subindex, access, w)
	v.logAccess(log.OpRead, subindex, false, abort, v.SubindexBitSize(subindex), err)
	return abort, err
}

func (v *VariableObject) read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error) {
	if subindex != 0 {
		return AbortSubindexDoesNotExist, nil
	}
	if !v.attrs.CanRead(access) {
		return AbortReadOfWriteOnly, nil
	}
	if err := writerUsable(w); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeRead(v.notifier, v, 0, false, false); code != AbortNone {
		return code, nil
	}
	if err := streamOutElements(w, v.typ, v.nElems, v.data, 0); err != nil {
		return AbortGeneralError, err
	}
	return AbortNone, nil
}

// Write decodes the value of subindex 0 from r and commits it. The reader
// must hold exactly the subindex width; on any rejection nothing is
// committed.
func (v *VariableObject) Write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	abort, err := v.write(subindex, access, r)
	v.logAccess(log.OpWrite, subindex, false, abort, v.SubindexBitSize(subindex), err)
	return abort, err
}

func (v *VariableObject) write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error) {
	if subindex != 0 {
		return AbortSubindexDoesNotExist, nil
	}
	if !v.attrs.CanWrite(access) {
		return AbortWriteOfReadOnly, nil
	}
	if err := readerUsable(r); err != nil {
		return AbortGeneralError, err
	}
	width := v.SubindexBitSize(0)
	if remaining := r.RemainingBits(); remaining < width {
		return AbortDataTypeMismatchTooShort, nil
	} else if remaining > width {
		return AbortDataTypeMismatchTooLong, nil
	}
	preview := make([]byte, nativeSpan(v.typ, v.nElems))
	copy(preview, v.data)
	if err := streamInElements(r, v.typ, v.nElems, preview, 0); err != nil {
		return AbortGeneralError, err
	}
	if code := beforeWrite(v.notifier, v, 0, false, 0, preview); code != AbortNone {
		return code, nil
	}
	copy(v.data, preview)
	runAfterWrite(v.notifier, v.logger, v, 0, false)
	return AbortNone, nil
}

// CompleteRead is not supported on single-subindex objects.
func (v *VariableObject) CompleteRead(bool, bool, Access, *stream.Writer) (AbortCode, error) {
	v.logAccess(log.OpCompleteRead, 0, true, AbortUnsupportedAccess, 0, nil)
	return AbortUnsupportedAccess, nil
}

// CompleteWrite is not supported on single-subindex objects.
func (v *VariableObject) CompleteWrite(bool, bool, Access, *stream.Reader, stream.RemainingBits) (AbortCode, error) {
	v.logAccess(log.OpCompleteWrite, 0, true, AbortUnsupportedAccess, 0, nil)
	return AbortUnsupportedAccess, nil
}

// Compile-time interface satisfaction check.
var _ Entry = (*VariableObject)(nil)
