// Package inspect renders object dictionaries in a human-readable form for
// diagnostics and the interactive shell.
package inspect

import (
	"fmt"
	"strings"

	"github.com/coe-protocol/coe-go/pkg/od"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes type and access information
	ShowMetadata bool

	// ShowIDs includes numeric indices alongside names
	ShowIDs bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowIDs:      true,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a decoded subindex value for display.
func (f *Formatter) FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return fmt.Sprintf("%q", v)
	case float32:
		return fmt.Sprintf("%g", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint8:
		return fmt.Sprintf("%d (0x%02X)", v, v)
	case uint16:
		return fmt.Sprintf("%d (0x%04X)", v, v)
	case uint32:
		return fmt.Sprintf("%d (0x%08X)", v, v)
	case uint64:
		return fmt.Sprintf("%d (0x%016X)", v, v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatEntryHeader renders the one-line header of a dictionary object.
func (f *Formatter) FormatEntryHeader(e od.Entry) string {
	if f.ShowIDs {
		return fmt.Sprintf("0x%04X %s (%d subindices)", e.Index(), e.Name(), e.NumSubindices())
	}
	return fmt.Sprintf("%s (%d subindices)", e.Name(), e.NumSubindices())
}

// FormatSubindexMeta renders type and access metadata for one subindex.
func (f *Formatter) FormatSubindexMeta(e od.Entry, si uint8) string {
	return fmt.Sprintf("%s %s %d bits", e.DataType(si), e.Attributes(si), e.SubindexBitSize(si))
}
