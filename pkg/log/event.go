package log

import "time"

// Event represents one dictionary access.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the recording session (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Op is the operation that produced the event.
	Op Op `cbor:"3,keyasint"`

	// Object is the dictionary object name.
	Object string `cbor:"4,keyasint,omitempty"`

	// Index is the object's dictionary index.
	Index uint16 `cbor:"5,keyasint"`

	// Subindex is the accessed subindex; 0 for complete access.
	Subindex uint8 `cbor:"6,keyasint"`

	// CompleteAccess is true for complete-access transfers.
	CompleteAccess bool `cbor:"7,keyasint,omitempty"`

	// Abort is the SDO abort code, zero on success.
	Abort uint32 `cbor:"8,keyasint,omitempty"`

	// Size is the number of payload bits moved, when known.
	Size int `cbor:"9,keyasint,omitempty"`

	// Err carries a stream or lifecycle error message, empty on success.
	Err string `cbor:"10,keyasint,omitempty"`
}

// Op classifies the operation behind an event.
type Op uint8

const (
	// OpRead is a single-subindex read.
	OpRead Op = 0

	// OpWrite is a single-subindex write.
	OpWrite Op = 1

	// OpCompleteRead is a complete-access read.
	OpCompleteRead Op = 2

	// OpCompleteWrite is a complete-access write.
	OpCompleteWrite Op = 3

	// OpSetData is an out-of-protocol storage replacement.
	OpSetData Op = 4

	// OpFatal is the designed unrecoverable path: an AfterWrite hook failed
	// after the commit.
	OpFatal Op = 5
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpCompleteRead:
		return "COMPLETE_READ"
	case OpCompleteWrite:
		return "COMPLETE_WRITE"
	case OpSetData:
		return "SET_DATA"
	case OpFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
