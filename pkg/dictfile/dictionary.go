// Package dictfile loads object-dictionary descriptions from YAML files and
// builds the corresponding od objects with allocated native storage.
package dictfile

import (
	"fmt"
	"sort"

	"github.com/coe-protocol/coe-go/pkg/od"
)

// Dictionary is an index-keyed collection of dictionary objects.
type Dictionary struct {
	entries map[uint16]od.Entry
	order   []uint16
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[uint16]od.Entry)}
}

// Add inserts an entry. A duplicate index is rejected.
func (d *Dictionary) Add(e od.Entry) error {
	idx := e.Index()
	if _, exists := d.entries[idx]; exists {
		return fmt.Errorf("dictfile: duplicate index 0x%04X (%s)", idx, e.Name())
	}
	d.entries[idx] = e
	d.order = append(d.order, idx)
	sort.Slice(d.order, func(i, j int) bool { return d.order[i] < d.order[j] })
	return nil
}

// Lookup returns the entry at idx.
func (d *Dictionary) Lookup(idx uint16) (od.Entry, bool) {
	e, ok := d.entries[idx]
	return e, ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Indices returns all indices in ascending order.
func (d *Dictionary) Indices() []uint16 {
	out := make([]uint16, len(d.order))
	copy(out, d.order)
	return out
}

// Each calls fn for every entry in ascending index order. Iteration stops at
// the first error.
func (d *Dictionary) Each(fn func(od.Entry) error) error {
	for _, idx := range d.order {
		if err := fn(d.entries[idx]); err != nil {
			return err
		}
	}
	return nil
}
