package od

import "fmt"

// AbortCode is an SDO abort code per CiA 301. AbortNone (zero) means the
// operation succeeded. Abort codes are returned, never panicked: they are
// well-formed protocol-visible rejections, not programming errors.
type AbortCode uint32

const (
	// AbortNone indicates success.
	AbortNone AbortCode = 0

	// AbortOutOfMemory indicates the device ran out of memory.
	AbortOutOfMemory AbortCode = 0x05040005

	// AbortUnsupportedAccess indicates an access the object does not support,
	// such as complete access on a single-subindex object.
	AbortUnsupportedAccess AbortCode = 0x06010000

	// AbortReadOfWriteOnly indicates an attempt to read a write-only subindex.
	AbortReadOfWriteOnly AbortCode = 0x06010001

	// AbortWriteOfReadOnly indicates an attempt to write a read-only subindex.
	AbortWriteOfReadOnly AbortCode = 0x06010002

	// AbortObjectDoesNotExist indicates the object is not in the dictionary.
	AbortObjectDoesNotExist AbortCode = 0x06020000

	// AbortGeneralIncompatibility indicates a general parameter incompatibility.
	AbortGeneralIncompatibility AbortCode = 0x06040043

	// AbortDeviceIncompatibility indicates an internal incompatibility in the
	// device.
	AbortDeviceIncompatibility AbortCode = 0x06040047

	// AbortDataTypeMismatchTooLong indicates the supplied data exceeds the
	// subindex width.
	AbortDataTypeMismatchTooLong AbortCode = 0x06070012

	// AbortDataTypeMismatchTooShort indicates the supplied data is smaller
	// than the subindex width.
	AbortDataTypeMismatchTooShort AbortCode = 0x06070013

	// AbortSubindexDoesNotExist indicates the subindex is not present.
	AbortSubindexDoesNotExist AbortCode = 0x06090011

	// AbortValueTooHigh indicates a value above the permitted range.
	AbortValueTooHigh AbortCode = 0x06090031

	// AbortValueTooLow indicates a value below the permitted range.
	AbortValueTooLow AbortCode = 0x06090032

	// AbortGeneralError indicates an unspecific failure.
	AbortGeneralError AbortCode = 0x08000000
)

// abortText holds the CiA 301 descriptions (subset).
var abortText = map[AbortCode]string{
	AbortNone:                     "success",
	AbortOutOfMemory:              "out of memory",
	AbortUnsupportedAccess:        "unsupported access to object",
	AbortReadOfWriteOnly:          "attempt to read a write-only object",
	AbortWriteOfReadOnly:          "attempt to write a read-only object",
	AbortObjectDoesNotExist:       "object does not exist",
	AbortGeneralIncompatibility:   "general parameter incompatibility",
	AbortDeviceIncompatibility:    "internal incompatibility in device",
	AbortDataTypeMismatchTooLong:  "data type does not match (length too high)",
	AbortDataTypeMismatchTooShort: "data type does not match (length too low)",
	AbortSubindexDoesNotExist:     "sub-index does not exist",
	AbortValueTooHigh:             "value range exceeded (max)",
	AbortValueTooLow:              "value range exceeded (min)",
	AbortGeneralError:             "general error",
}

// String returns the abort code description.
func (c AbortCode) String() string {
	if msg, ok := abortText[c]; ok {
		return msg
	}
	return fmt.Sprintf("abort 0x%08X", uint32(c))
}

// Abort is an AbortCode bound to the object and subindex it was raised for,
// usable as an error by layers that carry rejections through error returns.
type Abort struct {
	Index    uint16
	Subindex uint8
	Code     AbortCode
}

// Error implements the error interface.
func (a Abort) Error() string {
	return fmt.Sprintf("od: abort 0x%08X @ %04X:%02X: %s", uint32(a.Code), a.Index, a.Subindex, a.Code)
}
