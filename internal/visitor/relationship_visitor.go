package visitor

import (
	"context"

	"github.com/graph-import/internal/relationships"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// TypedBuilder resolves relationship types to their builders.
// Implemented by the orchestrator, which owns one builder per type.
// observedKeys carries the current element's property keys so a lazily
// discovered type can shape its builder from the first record.
type TypedBuilder interface {
	// BuilderFor returns the builder and its declared property key order.
	BuilderFor(relType schema.RelationshipType, observedKeys []string) (*relationships.Builder, []string, error)
}

// RelationshipVisitor assembles one relationship at a time.
type RelationshipVisitor struct {
	resolver TypedBuilder

	startID int64
	endID   int64
	relType schema.RelationshipType
	props   *values.PropertyValues
}

// NewRelationshipVisitor creates a visitor routing through the resolver.
func NewRelationshipVisitor(resolver TypedBuilder) *RelationshipVisitor {
	return &RelationshipVisitor{
		resolver: resolver,
		props:    values.NewPropertyValues(),
	}
}

// StartID records the source original id.
func (v *RelationshipVisitor) StartID(id int64) {
	v.startID = id
}

// EndID records the target original id.
func (v *RelationshipVisitor) EndID(id int64) {
	v.endID = id
}

// Type records the relationship type.
func (v *RelationshipVisitor) Type(name string) {
	v.relType = schema.RelationshipType(name)
}

// Property records one property of the current relationship.
func (v *RelationshipVisitor) Property(key string, value values.Value) {
	v.props.Put(key, value)
}

// EndOfEntity exports the assembled relationship and resets the visitor.
// Property values are ordered by the builder's declared key order; keys the
// type does not declare are dropped.
func (v *RelationshipVisitor) EndOfEntity(ctx context.Context) error {
	builder, keys, err := v.resolver.BuilderFor(v.relType, v.props.Keys())
	if err != nil {
		v.Reset()
		return err
	}

	var vals []float64
	if len(keys) > 0 {
		vals = make([]float64, 0, len(keys))
		for _, key := range keys {
			value := v.props.Get(key)
			num, err := numericValue(key, value)
			if err != nil {
				v.Reset()
				return err
			}
			vals = append(vals, num)
		}
	}

	err = builder.AddRelationship(ctx, v.startID, v.endID, vals...)
	v.Reset()
	return err
}

// Reset clears the in-flight element.
func (v *RelationshipVisitor) Reset() {
	v.startID = 0
	v.endID = 0
	v.relType = ""
	v.props.Reset()
}

// numericValue narrows a property value to the double storage of
// relationship columns.
func numericValue(key string, value values.Value) (float64, error) {
	switch tv := value.(type) {
	case nil:
		return 0, nil
	case values.DoubleValue:
		return float64(tv), nil
	case values.LongValue:
		return float64(tv), nil
	default:
		return 0, apperrors.Newf(apperrors.CodePropertyTypeMismatch,
			"relationship property %q must be numeric, got %s", key, value.Type())
	}
}
