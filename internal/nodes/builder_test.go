package nodes

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

func lazyConfig() Config {
	return Config{Concurrency: 2, BatchSize: 16, MaxOriginalID: -1}
}

func TestBuilder_LazyBasic(t *testing.T) {
	b, err := NewBuilder(lazyConfig())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.AddNodeWithLabels(ctx, 0, "Person"))
	require.NoError(t, b.AddNodeWithLabels(ctx, 1, "Person"))

	nodes, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, int64(2), nodes.Count())
	assert.Equal(t, int64(2), nodes.IdMap.LabelCount("Person"))
	assert.True(t, nodes.Schema.HasLabel("Person"))
	assert.Empty(t, nodes.Schema.PropertiesOf("Person"))
}

func TestBuilder_IdMapRoundTrip(t *testing.T) {
	b, err := NewBuilder(lazyConfig())
	require.NoError(t, err)
	ctx := context.Background()

	originals := []int64{42, 7, 1000, 3}
	for _, id := range originals {
		require.NoError(t, b.AddNode(ctx, id))
	}

	nodes, err := b.Build()
	require.NoError(t, err)
	m := nodes.IdMap

	for i := int64(0); i < m.NodeCount(); i++ {
		assert.Equal(t, i, m.ToInternal(m.ToOriginal(i)))
	}
	for _, id := range originals {
		assert.Equal(t, id, m.ToOriginal(m.ToInternal(id)))
	}
}

func TestBuilder_LazyPropertyDiscovery(t *testing.T) {
	b, err := NewBuilder(lazyConfig())
	require.NoError(t, err)
	ctx := context.Background()

	props := values.NewPropertyValues()
	props.Put("name", values.StringValue("ada"))
	props.Put("age", values.LongValue(36))
	require.NoError(t, b.AddNodeWithProperties(ctx, 0, props, "Person"))

	nodes, err := b.Build()
	require.NoError(t, err)

	internal := nodes.IdMap.ToInternal(0)
	assert.Equal(t, values.StringValue("ada"), nodes.Properties["name"].ValueAt(internal))
	assert.Equal(t, values.LongValue(36), nodes.Properties["age"].ValueAt(internal))

	discovered := nodes.Schema.PropertiesOf("Person")
	assert.Equal(t, values.TypeString, discovered["name"].Type)
	assert.Equal(t, values.TypeLong, discovered["age"].Type)
}

func TestBuilder_LazyDefaultFill(t *testing.T) {
	b, err := NewBuilder(lazyConfig())
	require.NoError(t, err)
	ctx := context.Background()

	props := values.NewPropertyValues()
	props.Put("score", values.DoubleValue(1.5))
	require.NoError(t, b.AddNodeWithProperties(ctx, 0, props, "Person"))
	require.NoError(t, b.AddNodeWithLabels(ctx, 1, "Person"))

	nodes, err := b.Build()
	require.NoError(t, err)

	col := nodes.Properties["score"]
	assert.Equal(t, int64(2), col.Len(), "column length equals node count")
	bare := nodes.IdMap.ToInternal(1)
	assert.Equal(t, values.DoubleValue(0), col.ValueAt(bare))
}

func TestBuilder_FixedUnknownLabel(t *testing.T) {
	fixed := schema.NewNodeSchema()
	fixed.AddLabel("Person")

	cfg := lazyConfig()
	cfg.Schema = fixed
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	err = b.AddNodeWithLabels(context.Background(), 0, "Alien")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownLabel, apperrors.GetErrorCode(err))
}

func TestBuilder_FixedUnknownProperty(t *testing.T) {
	fixed := schema.NewNodeSchema()
	require.NoError(t, fixed.AddProperty("Person", schema.NewPropertySchema("name", values.TypeString)))

	cfg := lazyConfig()
	cfg.Schema = fixed
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	props := values.NewPropertyValues()
	props.Put("name", values.StringValue("x"))
	props.Put("age", values.LongValue(30))
	err = b.AddNodeWithProperties(context.Background(), 0, props, "Person")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownProperty, apperrors.GetErrorCode(err))
}

func TestBuilder_FixedMissingProperties(t *testing.T) {
	fixed := schema.NewNodeSchema()
	require.NoError(t, fixed.AddProperty("Person", schema.NewPropertySchema("name", values.TypeString)))

	cfg := lazyConfig()
	cfg.Schema = fixed
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	require.NoError(t, b.AddNodeWithLabels(context.Background(), 0, "Person"))

	_, err = b.Build()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMissingProperties, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "name")
}

func TestBuilder_TypeMismatchAbortsElement(t *testing.T) {
	fixed := schema.NewNodeSchema()
	require.NoError(t, fixed.AddProperty("Person", schema.NewPropertySchema("age", values.TypeLong)))

	cfg := lazyConfig()
	cfg.Schema = fixed
	cfg.BatchSize = 1 // flush immediately so the column set runs now
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	props := values.NewPropertyValues()
	props.Put("age", values.StringValue("old"))
	err = b.AddNodeWithProperties(context.Background(), 0, props, "Person")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePropertyTypeMismatch, apperrors.GetErrorCode(err))
}

func TestBuilder_DedupSkipsSilently(t *testing.T) {
	cfg := lazyConfig()
	cfg.DeduplicateIDs = true
	cfg.MaxOriginalID = 100
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.AddNode(ctx, 5))
	require.NoError(t, b.AddNode(ctx, 5))
	require.NoError(t, b.AddNode(ctx, 5))

	nodes, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(1), nodes.Count())
	assert.Equal(t, int64(2), b.DedupSkips())
}

func TestBuilder_DedupUnderConcurrency(t *testing.T) {
	cfg := lazyConfig()
	cfg.Concurrency = 4
	cfg.DeduplicateIDs = true
	cfg.MaxOriginalID = -1 // growing bitset path
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	const workers = 4
	const ids = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			perm := rand.New(rand.NewSource(seed)).Perm(ids)
			for _, id := range perm {
				if err := b.AddNode(ctx, int64(id)); err != nil {
					t.Error(err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	nodes, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(ids), nodes.Count())
	assert.Equal(t, int64((workers-1)*ids), b.DedupSkips())

	// Round trip still holds after concurrent insertion.
	m := nodes.IdMap
	for i := int64(0); i < m.NodeCount(); i++ {
		require.Equal(t, i, m.ToInternal(m.ToOriginal(i)))
	}
}

func TestBuilder_ExactBatchBoundary(t *testing.T) {
	cfg := lazyConfig()
	cfg.BatchSize = 8
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// Exactly one batch worth of nodes triggers exactly one flush.
	for i := int64(0); i < 8; i++ {
		require.NoError(t, b.AddNode(ctx, i))
	}
	assert.Equal(t, int64(8), b.ImportedCount(), "full buffer should have flushed")

	nodes, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(8), nodes.Count())
}

func TestBuilder_ConfigValidation(t *testing.T) {
	_, err := NewBuilder(Config{Concurrency: 0})
	assert.True(t, errors.Is(err, apperrors.ErrBadConcurrency))

	_, err = NewBuilder(Config{Concurrency: 1, BatchSize: -1})
	assert.True(t, errors.Is(err, apperrors.ErrBadBatchSize))

	_, err = NewBuilder(Config{Concurrency: 1, DeduplicateIDs: true, IDMapType: idmap.BuilderTypeHighLimit})
	assert.True(t, errors.Is(err, apperrors.ErrDedupUnsupported))
}

func TestBuilder_PooledProvider(t *testing.T) {
	cfg := lazyConfig()
	cfg.UsePooledProvider = true
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := b.AddNode(ctx, int64(w*50+i)); err != nil {
					t.Error(err)
				}
			}
		}(w)
	}
	wg.Wait()

	nodes, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(400), nodes.Count())
}

func TestBuilder_EmptyBuild(t *testing.T) {
	b, err := NewBuilder(lazyConfig())
	require.NoError(t, err)

	nodes, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(0), nodes.Count())
	assert.True(t, nodes.Schema.IsEmpty())
	assert.Empty(t, nodes.Properties)
}
