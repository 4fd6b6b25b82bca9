package graphstore

import (
	"github.com/graph-import/pkg/values"
)

// GraphPropertyFragment accumulates graph-level property values seen by one
// worker. Fragments are merged at build time; merging is associative, so
// worker interleavings produce equivalent outputs for commutative uses.
type GraphPropertyFragment struct {
	order []string
	vals  map[string][]values.Value
}

// NewGraphPropertyFragment creates an empty fragment.
func NewGraphPropertyFragment() *GraphPropertyFragment {
	return &GraphPropertyFragment{vals: make(map[string][]values.Value)}
}

// Add appends a value for a key.
func (f *GraphPropertyFragment) Add(key string, value values.Value) {
	if _, ok := f.vals[key]; !ok {
		f.order = append(f.order, key)
	}
	f.vals[key] = append(f.vals[key], value)
}

// IsEmpty reports whether the fragment holds no values.
func (f *GraphPropertyFragment) IsEmpty() bool {
	return len(f.vals) == 0
}

// GraphPropertyValues is the merged stream of one graph property.
type GraphPropertyValues struct {
	Key  string
	Type values.ValueType
	vals []values.Value
}

// Values returns the concatenated values in merge order.
func (g *GraphPropertyValues) Values() []values.Value {
	return g.vals
}

// Len returns the number of values.
func (g *GraphPropertyValues) Len() int {
	return len(g.vals)
}

// MergeGraphPropertyFragments folds worker fragments left to right into
// per-key value streams.
func MergeGraphPropertyFragments(fragments []*GraphPropertyFragment) map[string]*GraphPropertyValues {
	out := make(map[string]*GraphPropertyValues)
	for _, frag := range fragments {
		if frag == nil {
			continue
		}
		for _, key := range frag.order {
			vals := frag.vals[key]
			merged, ok := out[key]
			if !ok {
				merged = &GraphPropertyValues{Key: key}
				if len(vals) > 0 && vals[0] != nil {
					merged.Type = vals[0].Type()
				}
				out[key] = merged
			}
			merged.vals = append(merged.vals, vals...)
		}
	}
	return out
}
