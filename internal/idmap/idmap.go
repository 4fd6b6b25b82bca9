package idmap

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/graph-import/internal/schema"
)

// NotFound is returned when an original id has no internal mapping.
const NotFound int64 = -1

// IdMap is the immutable bijection between original and internal node ids,
// plus per-label membership bitmaps over the internal id space.
type IdMap struct {
	toOriginal []int64
	mapping    originalMapping
	labels     map[schema.NodeLabel]*roaring64.Bitmap
	highestID  int64
}

// NodeCount returns the number of mapped nodes.
func (m *IdMap) NodeCount() int64 {
	return int64(len(m.toOriginal))
}

// HighestOriginalID returns the largest original id observed.
func (m *IdMap) HighestOriginalID() int64 {
	return m.highestID
}

// ToInternal maps an original id to its internal id, or NotFound.
func (m *IdMap) ToInternal(originalID int64) int64 {
	return m.mapping.get(originalID)
}

// ToOriginal maps an internal id back to its original id.
func (m *IdMap) ToOriginal(internalID int64) int64 {
	if internalID < 0 || internalID >= int64(len(m.toOriginal)) {
		return NotFound
	}
	return m.toOriginal[internalID]
}

// HasLabel reports whether the node carries the label.
func (m *IdMap) HasLabel(internalID int64, label schema.NodeLabel) bool {
	bm, ok := m.labels[label]
	if !ok {
		return false
	}
	return bm.Contains(uint64(internalID))
}

// LabelCount returns the number of nodes carrying the label.
func (m *IdMap) LabelCount(label schema.NodeLabel) int64 {
	bm, ok := m.labels[label]
	if !ok {
		return 0
	}
	return int64(bm.GetCardinality())
}

// NodesWithLabel returns a copy of the membership bitmap for a label.
func (m *IdMap) NodesWithLabel(label schema.NodeLabel) *roaring64.Bitmap {
	bm, ok := m.labels[label]
	if !ok {
		return roaring64.New()
	}
	return bm.Clone()
}

// Labels returns every label with at least one member.
func (m *IdMap) Labels() []schema.NodeLabel {
	out := make([]schema.NodeLabel, 0, len(m.labels))
	for l := range m.labels {
		out = append(out, l)
	}
	return out
}

// ForEachNode invokes fn for every internal id in ascending order.
// Iteration stops at the first error.
func (m *IdMap) ForEachNode(fn func(internalID int64) error) error {
	for i := int64(0); i < int64(len(m.toOriginal)); i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}
