package visitor

import (
	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/pkg/values"
)

// GraphPropertyVisitor accumulates graph-level property values into a
// worker-local fragment. Fragments from all workers merge at build time.
type GraphPropertyVisitor struct {
	fragment *graphstore.GraphPropertyFragment

	key   string
	value values.Value
	set   bool
}

// NewGraphPropertyVisitor creates a visitor writing into a fresh fragment.
func NewGraphPropertyVisitor() *GraphPropertyVisitor {
	return &GraphPropertyVisitor{
		fragment: graphstore.NewGraphPropertyFragment(),
	}
}

// Property records the current graph property.
func (v *GraphPropertyVisitor) Property(key string, value values.Value) {
	v.key = key
	v.value = value
	v.set = true
}

// EndOfEntity appends the in-flight value to the fragment and resets.
// Entities without a recorded property are ignored.
func (v *GraphPropertyVisitor) EndOfEntity() error {
	if v.set {
		v.fragment.Add(v.key, v.value)
	}
	v.Reset()
	return nil
}

// Reset clears the in-flight element.
func (v *GraphPropertyVisitor) Reset() {
	v.key = ""
	v.value = nil
	v.set = false
}

// Fragment returns the accumulated worker-local fragment.
func (v *GraphPropertyVisitor) Fragment() *graphstore.GraphPropertyFragment {
	return v.fragment
}
