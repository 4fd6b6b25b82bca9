// Package visitor bridges the file-reader boundary and the graph builders.
// Each worker owns its visitors; a visitor holds exactly one in-flight
// element and exports it on EndOfEntity.
package visitor

import (
	"context"
	"sort"
	"strings"

	"github.com/graph-import/internal/nodes"
	"github.com/graph-import/internal/schema"
	"github.com/graph-import/pkg/values"
)

// NodeVisitor assembles one node at a time from reader callbacks.
type NodeVisitor struct {
	builder *nodes.Builder

	id     int64
	labels []schema.NodeLabel
	props  *values.PropertyValues

	// labelCache interns label-set conversions, keyed by the sorted
	// label-set string.
	labelCache map[string][]schema.NodeLabel
}

// NewNodeVisitor creates a visitor exporting into the given builder.
func NewNodeVisitor(builder *nodes.Builder) *NodeVisitor {
	return &NodeVisitor{
		builder:    builder,
		props:      values.NewPropertyValues(),
		labelCache: make(map[string][]schema.NodeLabel),
	}
}

// ID records the original id of the current node.
func (v *NodeVisitor) ID(id int64) {
	v.id = id
}

// Labels records the label names of the current node.
func (v *NodeVisitor) Labels(names []string) {
	key := canonicalLabelKey(names)
	if cached, ok := v.labelCache[key]; ok {
		v.labels = cached
		return
	}
	labels := make([]schema.NodeLabel, len(names))
	for i, n := range names {
		labels[i] = schema.NodeLabel(n)
	}
	v.labelCache[key] = labels
	v.labels = labels
}

// Property records one property of the current node.
func (v *NodeVisitor) Property(key string, value values.Value) {
	v.props.Put(key, value)
}

// EndOfEntity exports the assembled node and resets the visitor.
func (v *NodeVisitor) EndOfEntity(ctx context.Context) error {
	var props *values.PropertyValues
	if !v.props.IsEmpty() {
		props = v.props
		v.props = values.NewPropertyValues()
	}
	err := v.builder.AddNodeWithProperties(ctx, v.id, props, v.labels...)
	v.Reset()
	return err
}

// Reset clears the in-flight element.
func (v *NodeVisitor) Reset() {
	v.id = 0
	v.labels = nil
	v.props.Reset()
}

// canonicalLabelKey sorts raw label names into the cache key.
func canonicalLabelKey(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}
