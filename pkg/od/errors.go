package od

import "errors"

// Construction and management errors. These indicate caller mistakes and are
// raised at object construction or from out-of-protocol management calls,
// never in steady-state protocol operation.
var (
	// ErrDataTypeNotSupported indicates a data type outside the supported set.
	ErrDataTypeNotSupported = errors.New("od: data type not supported")

	// ErrElementCount indicates an element count invalid for the data type.
	ErrElementCount = errors.New("od: invalid element count")

	// ErrNilStorage indicates missing native storage.
	ErrNilStorage = errors.New("od: native storage is nil")

	// ErrStorageTooSmall indicates native storage smaller than the layout needs.
	ErrStorageTooSmall = errors.New("od: native storage too small")

	// ErrMutexRequired indicates an object with write permission was
	// constructed without a mutex.
	ErrMutexRequired = errors.New("od: mutex required when write permission exists")

	// ErrCountOutOfRange indicates an array count outside [min,max].
	ErrCountOutOfRange = errors.New("od: element count out of configured bounds")

	// ErrDescriptor indicates an invalid record subindex descriptor.
	ErrDescriptor = errors.New("od: invalid subindex descriptor")

	// ErrOutOfMemory indicates a notification hook reported memory exhaustion
	// during a size query.
	ErrOutOfMemory = errors.New("od: out of memory")

	// ErrHookRejected indicates a notification hook rejected a size query.
	ErrHookRejected = errors.New("od: hook rejected size query")
)
