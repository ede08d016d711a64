package inspect

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/coe-protocol/coe-go/pkg/dictfile"
	"github.com/coe-protocol/coe-go/pkg/od"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// Inspector errors.
var (
	ErrObjectNotFound = errors.New("inspect: object not found")
	ErrNotReadable    = errors.New("inspect: subindex not readable")
	ErrEmptySubindex  = errors.New("inspect: subindex is empty")
)

// Inspector renders dictionaries and decodes current subindex values through
// the stream codec.
type Inspector struct {
	dict *dictfile.Dictionary
	f    *Formatter
}

// NewInspector creates an Inspector over dict. A nil formatter uses defaults.
func NewInspector(dict *dictfile.Dictionary, f *Formatter) *Inspector {
	if f == nil {
		f = NewFormatter()
	}
	return &Inspector{dict: dict, f: f}
}

// Dictionary returns the underlying dictionary.
func (i *Inspector) Dictionary() *dictfile.Dictionary { return i.dict }

// DecodeValue reads the current value of one subindex into a scratch buffer
// and decodes it into a Go value. The entry's data lock is taken for the
// duration of the read.
func DecodeValue(e od.Entry, si uint8) (any, error) {
	if e.IsSubindexEmpty(si) {
		return nil, ErrEmptySubindex
	}
	bits := e.SubindexBitSize(si)
	if bits == 0 {
		return nil, od.Abort{Index: e.Index(), Subindex: si, Code: od.AbortSubindexDoesNotExist}
	}

	scratch := make([]byte, (bits+7)/8)
	w := stream.NewWriter(scratch, stream.LittleEndian)

	e.LockData().Lock()
	abort, err := e.Read(si, od.AccessRead, w)
	e.LockData().Unlock()
	if err != nil {
		return nil, err
	}
	switch abort {
	case od.AbortNone:
	case od.AbortReadOfWriteOnly:
		return nil, ErrNotReadable
	default:
		return nil, od.Abort{Index: e.Index(), Subindex: si, Code: abort}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return decodeScratch(e.DataType(si), scratch)
}

func decodeScratch(t od.DataType, scratch []byte) (any, error) {
	r := stream.NewReader(scratch, stream.LittleEndian)
	switch t {
	case od.TypeBoolean:
		return r.ReadBool()
	case od.TypeInteger8:
		return r.ReadInt8()
	case od.TypeInteger16:
		return r.ReadInt16()
	case od.TypeInteger32:
		return r.ReadInt32()
	case od.TypeInteger64:
		return r.ReadInt64()
	case od.TypeUnsigned8:
		return r.ReadUint8()
	case od.TypeUnsigned16:
		return r.ReadUint16()
	case od.TypeUnsigned32:
		return r.ReadUint32()
	case od.TypeUnsigned64:
		return r.ReadUint64()
	case od.TypeReal32:
		return r.ReadFloat32()
	case od.TypeReal64:
		return r.ReadFloat64()
	case od.TypeVisibleString:
		s := string(scratch)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s, nil
	case od.TypeOctetString:
		return scratch, nil
	case od.TypeUnicodeString:
		units := make([]uint16, len(scratch)/2)
		if err := r.ReadUint16Into(units); err != nil {
			return nil, err
		}
		for i, u := range units {
			if u == 0 {
				units = units[:i]
				break
			}
		}
		return string(utf16.Decode(units)), nil
	case od.TypeNull:
		// Gap: width bits of zero padding.
		return scratch, nil
	default:
		if t.IsBitField() {
			return scratch[0], nil
		}
		return nil, fmt.Errorf("inspect: cannot decode type %s", t)
	}
}

// RenderValue formats the current value of one subindex. Unreadable
// subindices render as "<wo>" and empty ones as "<empty>".
func (i *Inspector) RenderValue(e od.Entry, si uint8) string {
	v, err := DecodeValue(e, si)
	switch {
	case errors.Is(err, ErrNotReadable):
		return "<wo>"
	case errors.Is(err, ErrEmptySubindex):
		return "<empty>"
	case err != nil:
		return fmt.Sprintf("<error: %v>", err)
	}
	return i.f.FormatValue(v)
}

// RenderEntry renders one object with all its subindices.
func (i *Inspector) RenderEntry(e od.Entry) string {
	var b strings.Builder
	b.WriteString(i.f.FormatEntryHeader(e))
	b.WriteByte('\n')

	for si := 0; si < e.NumSubindices(); si++ {
		sub := uint8(si)
		name := e.SubindexName(sub)
		if name == "" && e.IsSubindexEmpty(sub) {
			name = "(empty)"
		}
		line := fmt.Sprintf(":%02X %-24s %s", sub, name, i.RenderValue(e, sub))
		if i.f.ShowMetadata && !e.IsSubindexEmpty(sub) {
			line += "  [" + i.f.FormatSubindexMeta(e, sub) + "]"
		}
		b.WriteString(i.f.Indent(1, line))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderDictionary renders every object in ascending index order.
func (i *Inspector) RenderDictionary() string {
	var b strings.Builder
	_ = i.dict.Each(func(e od.Entry) error {
		b.WriteString(i.RenderEntry(e))
		return nil
	})
	return b.String()
}

// RenderIndex renders a single object by index.
func (i *Inspector) RenderIndex(idx uint16) (string, error) {
	e, ok := i.dict.Lookup(idx)
	if !ok {
		return "", fmt.Errorf("%w: 0x%04X", ErrObjectNotFound, idx)
	}
	return i.RenderEntry(e), nil
}
