package visitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/nodes"
	"github.com/graph-import/internal/relationships"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

func newNodesBuilder(t *testing.T) *nodes.Builder {
	t.Helper()
	b, err := nodes.NewBuilder(nodes.Config{Concurrency: 1, BatchSize: 4, MaxOriginalID: -1})
	require.NoError(t, err)
	return b
}

func TestNodeVisitor_ExportAndReset(t *testing.T) {
	builder := newNodesBuilder(t)
	v := NewNodeVisitor(builder)
	ctx := context.Background()

	v.ID(7)
	v.Labels([]string{"Person"})
	v.Property("name", values.StringValue("ada"))
	require.NoError(t, v.EndOfEntity(ctx))

	// Second element reuses the visitor after the implicit reset.
	v.ID(8)
	v.Labels([]string{"Person"})
	require.NoError(t, v.EndOfEntity(ctx))

	result, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Count())
	internal := result.IdMap.ToInternal(7)
	assert.Equal(t, values.StringValue("ada"), result.Properties["name"].ValueAt(internal))

	other := result.IdMap.ToInternal(8)
	assert.Equal(t, values.StringValue(""), result.Properties["name"].ValueAt(other),
		"second node must not inherit properties from the first")
}

func TestNodeVisitor_LabelCacheSharedAcrossOrders(t *testing.T) {
	builder := newNodesBuilder(t)
	v := NewNodeVisitor(builder)
	ctx := context.Background()

	v.ID(0)
	v.Labels([]string{"B", "A"})
	require.NoError(t, v.EndOfEntity(ctx))

	v.ID(1)
	v.Labels([]string{"A", "B"})
	require.NoError(t, v.EndOfEntity(ctx))

	result, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.IdMap.LabelCount("A"))
	assert.Equal(t, int64(2), result.IdMap.LabelCount("B"))
}

// typeRegistry is a test TypedBuilder over a static builder map.
type typeRegistry struct {
	builders map[schema.RelationshipType]*relationships.Builder
	keys     map[schema.RelationshipType][]string
}

func (r *typeRegistry) BuilderFor(relType schema.RelationshipType, _ []string) (*relationships.Builder, []string, error) {
	b, ok := r.builders[relType]
	if !ok {
		return nil, nil, apperrors.Newf(apperrors.CodeUnknownLabel,
			"relationship type %q is not part of the schema", string(relType))
	}
	return b, r.keys[relType], nil
}

func relIdMap(t *testing.T, n int64) *idmap.IdMap {
	t.Helper()
	b, err := idmap.NewBuilder(idmap.BuilderTypeDense)
	require.NoError(t, err)
	start := b.AllocateRange(int(n))
	for i := int64(0); i < n; i++ {
		b.Set(start+i, i)
	}
	return b.Build()
}

func TestRelationshipVisitor_Export(t *testing.T) {
	m := relIdMap(t, 2)
	b, err := relationships.NewBuilder(m, relationships.Config{
		Type:         "KNOWS",
		Orientation:  schema.OrientationNatural,
		Properties:   []relationships.PropertyConfig{{Key: "weight", Aggregation: schema.AggregationSum}},
		SkipDangling: true,
		Concurrency:  1,
		BatchSize:    4,
	})
	require.NoError(t, err)

	registry := &typeRegistry{
		builders: map[schema.RelationshipType]*relationships.Builder{"KNOWS": b},
		keys:     map[schema.RelationshipType][]string{"KNOWS": {"weight"}},
	}
	v := NewRelationshipVisitor(registry)
	ctx := context.Background()

	v.StartID(0)
	v.EndID(1)
	v.Type("KNOWS")
	v.Property("weight", values.DoubleValue(1.5))
	require.NoError(t, v.EndOfEntity(ctx))

	// Longs widen to the double column.
	v.StartID(0)
	v.EndID(1)
	v.Type("KNOWS")
	v.Property("weight", values.LongValue(2))
	require.NoError(t, v.EndOfEntity(ctx))

	rels, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(1), rels.ElementCount())
	assert.Equal(t, 3.5, rels.Properties["weight"].ValueAt(0, 0))
}

func TestRelationshipVisitor_UnknownType(t *testing.T) {
	registry := &typeRegistry{builders: map[schema.RelationshipType]*relationships.Builder{}}
	v := NewRelationshipVisitor(registry)

	v.StartID(0)
	v.EndID(1)
	v.Type("GHOST")
	err := v.EndOfEntity(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownLabel, apperrors.GetErrorCode(err))
}

func TestRelationshipVisitor_NonNumericProperty(t *testing.T) {
	m := relIdMap(t, 2)
	b, err := relationships.NewBuilder(m, relationships.Config{
		Type:         "KNOWS",
		Orientation:  schema.OrientationNatural,
		Properties:   []relationships.PropertyConfig{{Key: "weight", Aggregation: schema.AggregationSum}},
		SkipDangling: true,
		Concurrency:  1,
		BatchSize:    4,
	})
	require.NoError(t, err)

	registry := &typeRegistry{
		builders: map[schema.RelationshipType]*relationships.Builder{"KNOWS": b},
		keys:     map[schema.RelationshipType][]string{"KNOWS": {"weight"}},
	}
	v := NewRelationshipVisitor(registry)

	v.StartID(0)
	v.EndID(1)
	v.Type("KNOWS")
	v.Property("weight", values.StringValue("heavy"))
	err = v.EndOfEntity(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePropertyTypeMismatch, apperrors.GetErrorCode(err))
}

func TestRelationshipVisitor_UndeclaredKeyDropped(t *testing.T) {
	m := relIdMap(t, 2)
	b, err := relationships.NewBuilder(m, relationships.Config{
		Type:         "KNOWS",
		Orientation:  schema.OrientationNatural,
		SkipDangling: true,
		Concurrency:  1,
		BatchSize:    4,
	})
	require.NoError(t, err)

	registry := &typeRegistry{
		builders: map[schema.RelationshipType]*relationships.Builder{"KNOWS": b},
		keys:     map[schema.RelationshipType][]string{"KNOWS": nil},
	}
	v := NewRelationshipVisitor(registry)

	v.StartID(0)
	v.EndID(1)
	v.Type("KNOWS")
	v.Property("undeclared", values.StringValue("x"))
	require.NoError(t, v.EndOfEntity(context.Background()))

	rels, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(1), rels.ElementCount())
	assert.Empty(t, rels.Properties)
}

func TestGraphPropertyVisitor(t *testing.T) {
	v := NewGraphPropertyVisitor()

	v.Property("iterations", values.LongValue(20))
	require.NoError(t, v.EndOfEntity())
	v.Property("iterations", values.LongValue(21))
	require.NoError(t, v.EndOfEntity())
	// An entity without a property contributes nothing.
	require.NoError(t, v.EndOfEntity())

	merged := graphstore.MergeGraphPropertyFragments([]*graphstore.GraphPropertyFragment{v.Fragment()})
	require.Contains(t, merged, "iterations")
	assert.Equal(t, 2, merged["iterations"].Len())
}
