package dictfile

import (
	"fmt"
	"strings"

	"github.com/coe-protocol/coe-go/pkg/od"
)

// ParseAccess parses an access string from a dictionary description.
//
// The direction part is "ro", "wo" or "rw". An optional state filter follows
// after a colon as a comma list of "preop", "safeop" and "op"; without a
// filter every state is granted. Examples: "rw", "ro:preop,safeop",
// "rw:op". An empty string yields no permissions.
func ParseAccess(s string) (od.Access, error) {
	if s == "" {
		return 0, nil
	}
	dir, filter, hasFilter := strings.Cut(s, ":")

	var rd, wr od.Access
	switch dir {
	case "ro":
		rd = od.AccessRead
	case "wo":
		wr = od.AccessWrite
	case "rw":
		rd = od.AccessRead
		wr = od.AccessWrite
	default:
		return 0, fmt.Errorf("dictfile: invalid access direction %q", dir)
	}

	if !hasFilter {
		return rd | wr, nil
	}

	var mask od.Access
	for _, state := range strings.Split(filter, ",") {
		switch strings.TrimSpace(state) {
		case "preop":
			mask |= od.AccessRdPreOp | od.AccessWrPreOp
		case "safeop":
			mask |= od.AccessRdSafeOp | od.AccessWrSafeOp
		case "op":
			mask |= od.AccessRdOp | od.AccessWrOp
		default:
			return 0, fmt.Errorf("dictfile: invalid access state %q", state)
		}
	}
	return (rd | wr) & mask, nil
}

// FormatAccess renders an access mask back into the file notation, reduced to
// the closest representable form.
func FormatAccess(a od.Access) string {
	canRead := a&od.AccessRead != 0
	canWrite := a&od.AccessWrite != 0
	switch {
	case canRead && canWrite:
		return "rw"
	case canRead:
		return "ro"
	case canWrite:
		return "wo"
	default:
		return "-"
	}
}
