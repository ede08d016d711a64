package dictfile

import (
	"fmt"
	"os"
	"sync"
	"unicode/utf16"

	"gopkg.in/yaml.v3"

	"github.com/coe-protocol/coe-go/pkg/log"
	"github.com/coe-protocol/coe-go/pkg/od"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// File is the top-level YAML structure of a dictionary description.
type File struct {
	// Device carries free-form identity metadata.
	Device DeviceInfo `yaml:"device"`

	// Objects lists the dictionary objects.
	Objects []ObjectDesc `yaml:"objects"`
}

// DeviceInfo is the device identity block of a description file.
type DeviceInfo struct {
	Name    string `yaml:"name"`
	Vendor  string `yaml:"vendor"`
	Product string `yaml:"product"`
}

// ObjectDesc describes one dictionary object in YAML form.
type ObjectDesc struct {
	Index uint16 `yaml:"index"`
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"` // variable, array, record

	// Variable and array fields.
	Type      string `yaml:"type"`
	Access    string `yaml:"access"`
	NElements int    `yaml:"nelements"` // string length for variables

	// Array fields.
	SI0Access string `yaml:"si0_access"`
	Min       uint8  `yaml:"min"`
	Max       uint8  `yaml:"max"`
	Count     uint8  `yaml:"count"`

	// Record fields.
	Size       int           `yaml:"size"` // native aggregate bytes
	Subindices []SubindexRow `yaml:"subindices"`

	// Initial values: Value for variables, Values per element/subindex.
	Value  any   `yaml:"value"`
	Values []any `yaml:"values"`
}

// SubindexRow describes one record subindex in YAML form.
type SubindexRow struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Access    string `yaml:"access"`
	NElements int    `yaml:"nelements"`
	Byte      int    `yaml:"byte"`
	Bit       uint8  `yaml:"bit"`
	Gap       int    `yaml:"gap"`   // gap width in bits, row is a gap when > 0
	Empty     bool   `yaml:"empty"` // row is an empty placeholder
	Value     any    `yaml:"value"`
}

// LoadConfig carries the collaborators handed to every built object.
type LoadConfig struct {
	// Logger receives diagnostics events from the built objects; nil
	// disables them.
	Logger log.Logger

	// Notifier receives access hooks on the built objects; nil disables
	// them.
	Notifier od.Notifier
}

// LoadFile reads and builds a dictionary description from path.
func LoadFile(path string, cfg LoadConfig) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictfile: %w", err)
	}
	return Parse(data, cfg)
}

// Parse builds a dictionary from YAML description data.
func Parse(data []byte, cfg LoadConfig) (*Dictionary, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("dictfile: YAML parse error: %w", err)
	}

	dict := NewDictionary()
	for i := range f.Objects {
		desc := &f.Objects[i]
		entry, err := buildObject(desc, cfg)
		if err != nil {
			return nil, fmt.Errorf("dictfile: object 0x%04X (%s): %w", desc.Index, desc.Name, err)
		}
		if err := dict.Add(entry); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func buildObject(desc *ObjectDesc, cfg LoadConfig) (od.Entry, error) {
	switch desc.Kind {
	case "variable":
		return buildVariable(desc, cfg)
	case "array":
		return buildArray(desc, cfg)
	case "record":
		return buildRecord(desc, cfg)
	default:
		return nil, fmt.Errorf("unknown kind %q", desc.Kind)
	}
}

func buildVariable(desc *ObjectDesc, cfg LoadConfig) (od.Entry, error) {
	typ, err := od.ParseDataType(desc.Type)
	if err != nil {
		return nil, err
	}
	access, err := ParseAccess(desc.Access)
	if err != nil {
		return nil, err
	}
	nElems := desc.NElements
	if nElems == 0 && !typ.IsString() {
		nElems = 1
	}

	data := make([]byte, storageSpan(typ, nElems))
	if desc.Value != nil {
		if err := seedValue(typ, desc.Value, data, 0); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
	}

	return od.NewVariable(od.VariableConfig{
		Name:       desc.Name,
		Index:      desc.Index,
		Type:       typ,
		NElements:  nElems,
		Attributes: access,
		Data:       data,
		Mutex:      mutexFor(access),
		Notifier:   cfg.Notifier,
		Logger:     cfg.Logger,
	})
}

func buildArray(desc *ObjectDesc, cfg LoadConfig) (od.Entry, error) {
	typ, err := od.ParseDataType(desc.Type)
	if err != nil {
		return nil, err
	}
	elemAccess, err := ParseAccess(desc.Access)
	if err != nil {
		return nil, err
	}
	si0Access, err := ParseAccess(desc.SI0Access)
	if err != nil {
		return nil, fmt.Errorf("si0_access: %w", err)
	}
	if si0Access == 0 {
		si0Access = od.AccessRead
	}

	max := desc.Max
	if max == 0 {
		max = desc.Count
	}
	count := desc.Count
	if count == 0 && len(desc.Values) > 0 {
		count = uint8(len(desc.Values))
	}

	data := make([]byte, storageSpan(typ, int(max)))
	for i, v := range desc.Values {
		if i >= int(max) {
			return nil, fmt.Errorf("values: %d initial values exceed max %d", len(desc.Values), max)
		}
		bitPos := i * typ.BitSize()
		if !typ.IsBitField() {
			bitPos = i * typ.NativeByteSize() * 8
		}
		if err := seedValue(typ, v, data, bitPos); err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
	}

	return od.NewArray(od.ArrayConfig{
		Name:              desc.Name,
		Index:             desc.Index,
		Type:              typ,
		SI0Attributes:     si0Access,
		ElementAttributes: elemAccess,
		MinElements:       desc.Min,
		MaxElements:       max,
		Count:             count,
		Data:              data,
		Mutex:             mutexFor(si0Access | elemAccess),
		Notifier:          cfg.Notifier,
		Logger:            cfg.Logger,
	})
}

func buildRecord(desc *ObjectDesc, cfg LoadConfig) (od.Entry, error) {
	descs := make([]od.SubindexDesc, 0, len(desc.Subindices))
	var anyWrite bool
	for i := range desc.Subindices {
		row := &desc.Subindices[i]
		sd, err := buildSubindexDesc(row)
		if err != nil {
			return nil, fmt.Errorf("subindex %d: %w", i+1, err)
		}
		anyWrite = anyWrite || sd.Attributes.HasWritePermission()
		descs = append(descs, sd)
	}

	size := desc.Size
	if size == 0 {
		size = minimumRecordSize(descs)
	}
	data := make([]byte, size)
	for i := range desc.Subindices {
		row := &desc.Subindices[i]
		if row.Value == nil || row.Gap > 0 || row.Empty {
			continue
		}
		sd := &descs[i]
		if err := seedValue(sd.Type, row.Value, data, sd.ByteOffset*8+int(sd.BitOffset)); err != nil {
			return nil, fmt.Errorf("subindex %d value: %w", i+1, err)
		}
	}

	var mu sync.Locker
	if anyWrite {
		mu = &sync.Mutex{}
	}
	return od.NewRecord(od.RecordConfig{
		Name:       desc.Name,
		Index:      desc.Index,
		Subindices: descs,
		NativeSize: size,
		Data:       data,
		Mutex:      mu,
		Notifier:   cfg.Notifier,
		Logger:     cfg.Logger,
	})
}

func buildSubindexDesc(row *SubindexRow) (od.SubindexDesc, error) {
	if row.Empty {
		return od.SubindexDesc{}, nil
	}
	if row.Gap > 0 {
		name := row.Name
		if name == "" {
			name = "reserved"
		}
		return od.SubindexDesc{Name: name, Type: od.TypeNull, NElements: row.Gap}, nil
	}
	typ, err := od.ParseDataType(row.Type)
	if err != nil {
		return od.SubindexDesc{}, err
	}
	access, err := ParseAccess(row.Access)
	if err != nil {
		return od.SubindexDesc{}, err
	}
	nElems := row.NElements
	if nElems == 0 {
		nElems = 1
	}
	return od.SubindexDesc{
		Name:       row.Name,
		Type:       typ,
		Attributes: access,
		NElements:  nElems,
		ByteOffset: row.Byte,
		BitOffset:  row.Bit,
	}, nil
}

// minimumRecordSize computes the smallest native aggregate covering every
// field when the description does not declare a size.
func minimumRecordSize(descs []od.SubindexDesc) int {
	size := 0
	for i := range descs {
		d := &descs[i]
		if d.Type == od.TypeNull {
			continue
		}
		end := d.ByteOffset + storageSpan(d.Type, d.NElements)
		if d.Type.IsBitField() {
			end = d.ByteOffset + 1
		}
		if end > size {
			size = end
		}
	}
	return size
}

// storageSpan returns the native byte footprint of n elements of t.
func storageSpan(t od.DataType, n int) int {
	if t.IsBitField() {
		return (n*t.BitSize() + 7) / 8
	}
	return n * t.NativeByteSize()
}

// mutexFor allocates a mutex only when write permission exists; read-only
// objects validly carry none.
func mutexFor(a od.Access) sync.Locker {
	if a.HasWritePermission() {
		return &sync.Mutex{}
	}
	return nil
}

// seedValue encodes one initial value into native storage at bitPos, using
// the same layout the protocol write path produces.
func seedValue(t od.DataType, v any, data []byte, bitPos int) error {
	if t.IsBitField() {
		n, err := toUint64(v)
		if err != nil {
			return err
		}
		width := t.BitSize()
		if n >= uint64(1)<<uint(width) {
			return fmt.Errorf("value %d does not fit %d bits", n, width)
		}
		// Packed bit fields may straddle a byte boundary.
		byteOff, bitOff := bitPos/8, uint(bitPos%8)
		v16 := uint16(n) << bitOff
		m16 := uint16(1<<uint(width)-1) << bitOff
		data[byteOff] = data[byteOff]&^byte(m16) | byte(v16)&byte(m16)
		if bitOff+uint(width) > 8 {
			data[byteOff+1] = data[byteOff+1]&^byte(m16>>8) | byte(v16>>8)&byte(m16>>8)
		}
		return nil
	}

	w := stream.NewWriter(data[bitPos/8:], stream.LittleEndian)
	switch t {
	case od.TypeBoolean:
		n, err := toUint64(v)
		if err != nil {
			if b, ok := v.(bool); ok {
				return w.WriteBool(b)
			}
			return err
		}
		return w.WriteBool(n != 0)
	case od.TypeInteger8, od.TypeInteger16, od.TypeInteger32, od.TypeInteger64,
		od.TypeUnsigned8, od.TypeUnsigned16, od.TypeUnsigned32, od.TypeUnsigned64:
		n, err := toUint64(v)
		if err != nil {
			return err
		}
		for i := 0; i < t.NativeByteSize(); i++ {
			if err := w.WriteUint8(uint8(n >> (8 * i))); err != nil {
				return err
			}
		}
		return nil
	case od.TypeReal32:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		return w.WriteFloat32(float32(f))
	case od.TypeReal64:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		return w.WriteFloat64(f)
	case od.TypeVisibleString, od.TypeOctetString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if len(s) > len(data)-bitPos/8 {
			return fmt.Errorf("string %q exceeds %d bytes", s, len(data)-bitPos/8)
		}
		return w.WriteBytes([]byte(s))
	case od.TypeUnicodeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		units := utf16.Encode([]rune(s))
		if len(units)*2 > len(data)-bitPos/8 {
			return fmt.Errorf("string %q exceeds storage", s)
		}
		return w.WriteUint16From(units)
	default:
		return fmt.Errorf("cannot seed type %s", t)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
