package od

import "strings"

// Access is a bitset of {read, write} permissions per device state
// (PREOP, SAFEOP, OP). An access check passes iff the subindex attributes and
// the requested mask share a bit for the requested direction.
type Access uint16

const (
	// AccessRdPreOp permits reading in the PREOP device state.
	AccessRdPreOp Access = 1 << iota

	// AccessRdSafeOp permits reading in the SAFEOP device state.
	AccessRdSafeOp

	// AccessRdOp permits reading in the OP device state.
	AccessRdOp

	// AccessWrPreOp permits writing in the PREOP device state.
	AccessWrPreOp

	// AccessWrSafeOp permits writing in the SAFEOP device state.
	AccessWrSafeOp

	// AccessWrOp permits writing in the OP device state.
	AccessWrOp
)

// Common access combinations.
const (
	// AccessRead permits reading in every device state.
	AccessRead = AccessRdPreOp | AccessRdSafeOp | AccessRdOp

	// AccessWrite permits writing in every device state.
	AccessWrite = AccessWrPreOp | AccessWrSafeOp | AccessWrOp

	// AccessReadWrite permits reading and writing in every device state.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead reports whether a read is permitted for the requested mask.
func (a Access) CanRead(requested Access) bool {
	return a&requested&AccessRead != 0
}

// CanWrite reports whether a write is permitted for the requested mask.
func (a Access) CanWrite(requested Access) bool {
	return a&requested&AccessWrite != 0
}

// HasWritePermission reports whether any write bit is set at all.
func (a Access) HasWritePermission() bool {
	return a&AccessWrite != 0
}

// String returns a compact rendering such as "rd(preop,safeop,op) wr(op)".
func (a Access) String() string {
	if a == 0 {
		return "-"
	}
	states := func(pre, safe, op Access) string {
		var parts []string
		if a&pre != 0 {
			parts = append(parts, "preop")
		}
		if a&safe != 0 {
			parts = append(parts, "safeop")
		}
		if a&op != 0 {
			parts = append(parts, "op")
		}
		return strings.Join(parts, ",")
	}
	var parts []string
	if a&AccessRead != 0 {
		parts = append(parts, "rd("+states(AccessRdPreOp, AccessRdSafeOp, AccessRdOp)+")")
	}
	if a&AccessWrite != 0 {
		parts = append(parts, "wr("+states(AccessWrPreOp, AccessWrSafeOp, AccessWrOp)+")")
	}
	return strings.Join(parts, " ")
}
