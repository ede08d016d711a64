package stream

// State is the lifecycle state of a Reader or Writer.
type State uint8

const (
	// Open indicates data or capacity remains and no error occurred.
	Open State = iota

	// Empty indicates a reader with zero bits remaining; still closable.
	Empty

	// Full indicates a writer with zero bits of capacity remaining; still closable.
	Full

	// ErrorState indicates a prior operation failed. Every further data
	// operation fails with ErrErrorState without touching the cursor.
	ErrorState

	// Closed is terminal. Every further operation fails with ErrClosed.
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Open:
		return "OPEN"
	case Empty:
		return "EMPTY"
	case Full:
		return "FULL"
	case ErrorState:
		return "ERROR"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Endianness selects the byte order used for multi-byte values.
// It is fixed at construction and does not affect bit-within-byte order.
type Endianness uint8

const (
	// LittleEndian encodes the least significant byte first.
	LittleEndian Endianness = iota

	// BigEndian encodes the most significant byte first.
	BigEndian
)

// String returns the endianness name.
func (e Endianness) String() string {
	if e == BigEndian {
		return "BIG"
	}
	return "LITTLE"
}

// RemainingBits is an expectation about the number of bits left in a reader,
// checked by EnsureAllDataConsumed.
type RemainingBits uint8

const (
	// ExactlyZero expects the reader to be fully consumed.
	ExactlyZero RemainingBits = iota
	ExactlyOne
	ExactlyTwo
	ExactlyThree
	ExactlyFour
	ExactlyFive
	ExactlySix
	ExactlySeven

	// SevenOrLess expects at most seven bits (a partially consumed final byte).
	SevenOrLess

	// MoreThanSeven expects at least one full byte.
	MoreThanSeven

	// Any accepts any remaining bit count.
	Any
)

// String returns the expectation name.
func (r RemainingBits) String() string {
	switch {
	case r <= ExactlySeven:
		return "EXACTLY_" + string(rune('0'+r))
	case r == SevenOrLess:
		return "SEVEN_OR_LESS"
	case r == MoreThanSeven:
		return "MORE_THAN_SEVEN"
	case r == Any:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// matches reports whether an actual remaining bit count satisfies the expectation.
func (r RemainingBits) matches(bits int) bool {
	switch {
	case r <= ExactlySeven:
		return bits == int(r)
	case r == SevenOrLess:
		return bits <= 7
	case r == MoreThanSeven:
		return bits > 7
	default:
		return true
	}
}
