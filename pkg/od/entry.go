package od

import (
	"sync"

	"github.com/coe-protocol/coe-go/pkg/log"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// Entry is the common contract of a dictionary object. It is driven by a
// device-management protocol server which is responsible for holding the
// object's data lock across every Read/Write/CompleteRead/CompleteWrite call.
//
// Operations return protocol-visible rejections as AbortCode values
// (AbortNone means success) and stream or lifecycle faults as errors. When
// the error is non-nil the abort code is AbortGeneralError; native storage
// has not been corrupted in either case.
type Entry interface {
	// Name returns the object name.
	Name() string

	// Index returns the object's dictionary index.
	Index() uint16

	// DataType returns the protocol-visible data type of a subindex, or
	// TypeNull if the subindex does not exist or is a gap/empty subindex.
	DataType(subindex uint8) DataType

	// Attributes returns the access attribute mask of a subindex, or zero if
	// the subindex does not exist.
	Attributes(subindex uint8) Access

	// SubindexName returns the name of a subindex.
	SubindexName(subindex uint8) string

	// NumSubindices returns the current number of subindices including
	// subindex 0.
	NumSubindices() int

	// MaxNumSubindices returns the maximum number of subindices including
	// subindex 0.
	MaxNumSubindices() int

	// IsSubindexEmpty reports whether the subindex is an intentionally-empty
	// placeholder: it occupies a subindex number but has no name, no
	// attributes, and zero size.
	IsSubindexEmpty(subindex uint8) bool

	// SubindexBitSize returns the stream width of a subindex in bits, or 0
	// if the subindex does not exist or is empty.
	SubindexBitSize(subindex uint8) int

	// ActualSize returns the current content size of a subindex in bytes.
	// For visible_string data this is the current string length, queried
	// through the BeforeRead hook with sizeOnly set; a hook reporting
	// AbortOutOfMemory surfaces as ErrOutOfMemory, any other rejection as
	// ErrHookRejected.
	ActualSize(subindex uint8) (int, error)

	// Read streams the current value of one subindex to w after validating
	// existence and read permission and consulting the BeforeRead hook.
	Read(subindex uint8, access Access, w *stream.Writer) (AbortCode, error)

	// Write decodes one subindex value from r and commits it to native
	// storage. The reader must contain exactly the subindex width; on any
	// rejection nothing is committed.
	Write(subindex uint8, access Access, r *stream.Reader) (AbortCode, error)

	// CompleteRead streams every subindex in one pass, skipping empty ones.
	// includeSI0 selects whether subindex 0 is part of the transfer;
	// si0As16Bit widens it to 16 bits.
	CompleteRead(includeSI0, si0As16Bit bool, access Access, w *stream.Writer) (AbortCode, error)

	// CompleteWrite decodes every subindex in one pass and commits them
	// atomically with a single BeforeWrite/AfterWrite hook pair. The
	// trailing-bit expectation is enforced through the reader's
	// EnsureAllDataConsumed contract.
	CompleteWrite(includeSI0, si0As16Bit bool, access Access, r *stream.Reader, expect stream.RemainingBits) (AbortCode, error)

	// LockData returns the lock guarding the object's native storage.
	// Acquire it for the whole duration of any access-and-decide sequence.
	LockData() sync.Locker
}

// noopLocker is returned by LockData for objects that legitimately carry no
// mutex (no write permission anywhere).
type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// object carries the identity and collaborators shared by all object kinds.
type object struct {
	name     string
	index    uint16
	mu       sync.Locker
	notifier Notifier
	logger   log.Logger
}

// Name returns the object name.
func (o *object) Name() string { return o.name }

// Index returns the object's dictionary index.
func (o *object) Index() uint16 { return o.index }

// LockData returns the configured mutex, or a no-op locker when the object
// was validly constructed without one.
func (o *object) LockData() sync.Locker {
	if o.mu != nil {
		return o.mu
	}
	return noopLocker{}
}

// requireMutex enforces the construction-time invariant that write
// permission implies a configured mutex.
func (o *object) requireMutex(attrs ...Access) error {
	if o.mu != nil {
		return nil
	}
	for _, a := range attrs {
		if a.HasWritePermission() {
			return ErrMutexRequired
		}
	}
	return nil
}

// logAccess emits one diagnostics event for a finished operation.
func (o *object) logAccess(op log.Op, subindex uint8, completeAccess bool, abort AbortCode, bits int, err error) {
	if o.logger == nil {
		return
	}
	ev := log.Event{
		Op:             op,
		Object:         o.name,
		Index:          o.index,
		Subindex:       subindex,
		CompleteAccess: completeAccess,
		Abort:          uint32(abort),
		Size:           bits,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	o.logger.Log(ev)
}

// readerUsable surfaces a reader's bad lifecycle state before any size
// bookkeeping happens, so a closed reader reports ErrClosed rather than a
// size mismatch.
func readerUsable(r *stream.Reader) error {
	switch r.State() {
	case stream.Closed:
		return stream.ErrClosed
	case stream.ErrorState:
		return stream.ErrErrorState
	}
	return nil
}

// writerUsable mirrors readerUsable for writers.
func writerUsable(w *stream.Writer) error {
	switch w.State() {
	case stream.Closed:
		return stream.ErrClosed
	case stream.ErrorState:
		return stream.ErrErrorState
	}
	return nil
}
