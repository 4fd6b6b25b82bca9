package idmap

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graph-import/internal/schema"
)

func TestBuilder_RoundTrip(t *testing.T) {
	for _, builderType := range []BuilderType{BuilderTypeDense, BuilderTypePaged, BuilderTypeHighLimit} {
		t.Run(string(builderType), func(t *testing.T) {
			b, err := NewBuilder(builderType)
			require.NoError(t, err)

			originals := []int64{100, 7, 42, 0, 999}
			start := b.AllocateRange(len(originals))
			assert.Equal(t, int64(0), start)
			for i, orig := range originals {
				b.Set(start+int64(i), orig)
			}

			m := b.Build()
			assert.Equal(t, int64(len(originals)), m.NodeCount())
			assert.Equal(t, int64(999), m.HighestOriginalID())

			for i := int64(0); i < m.NodeCount(); i++ {
				orig := m.ToOriginal(i)
				assert.Equal(t, i, m.ToInternal(orig), "toInternal(toOriginal(i)) == i")
			}
			for _, orig := range originals {
				internal := m.ToInternal(orig)
				require.NotEqual(t, NotFound, internal)
				assert.Equal(t, orig, m.ToOriginal(internal), "toOriginal(toInternal(x)) == x")
			}
		})
	}
}

func TestIdMap_NotFound(t *testing.T) {
	b, err := NewBuilder(BuilderTypeDense)
	require.NoError(t, err)
	start := b.AllocateRange(1)
	b.Set(start, 5)
	m := b.Build()

	assert.Equal(t, NotFound, m.ToInternal(99))
	assert.Equal(t, NotFound, m.ToInternal(-1))
	assert.Equal(t, NotFound, m.ToOriginal(99))
	assert.Equal(t, NotFound, m.ToOriginal(-1))
}

func TestIdMap_Labels(t *testing.T) {
	b, err := NewBuilder(BuilderTypeDense)
	require.NoError(t, err)
	start := b.AllocateRange(3)
	for i := int64(0); i < 3; i++ {
		b.Set(start+i, i)
	}
	b.AddToLabel(0, "Person")
	b.AddToLabel(1, "Person")
	b.AddToLabel(2, "City")

	m := b.Build()
	assert.Equal(t, int64(2), m.LabelCount("Person"))
	assert.Equal(t, int64(1), m.LabelCount("City"))
	assert.Equal(t, int64(0), m.LabelCount("Ghost"))
	assert.True(t, m.HasLabel(0, "Person"))
	assert.False(t, m.HasLabel(2, "Person"))
	assert.ElementsMatch(t, []schema.NodeLabel{"Person", "City"}, m.Labels())

	// Bitmap cardinality equals membership count.
	bm := m.NodesWithLabel("Person")
	assert.Equal(t, uint64(2), bm.GetCardinality())
}

func TestBuilder_ConcurrentRanges(t *testing.T) {
	b, err := NewBuilder(BuilderTypePaged)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			start := b.AllocateRange(perWorker)
			for i := 0; i < perWorker; i++ {
				b.Set(start+int64(i), int64(w*perWorker+i))
			}
		}(w)
	}
	wg.Wait()

	m := b.Build()
	require.Equal(t, int64(workers*perWorker), m.NodeCount())
	for i := int64(0); i < m.NodeCount(); i++ {
		orig := m.ToOriginal(i)
		require.NotEqual(t, NotFound, orig)
		require.Equal(t, i, m.ToInternal(orig))
	}
}

func seenBefore(t *testing.T, p DedupPredicate, id int64) bool {
	t.Helper()
	seen, err := p.SeenBefore(id)
	require.NoError(t, err)
	return seen
}

func TestDedupPredicate_Disabled(t *testing.T) {
	p := NewDedupPredicate(false, -1)
	assert.False(t, seenBefore(t, p, 1))
	assert.False(t, seenBefore(t, p, 1))
}

func TestDedupPredicate_FixedDomain(t *testing.T) {
	p := NewDedupPredicate(true, 0) // single id domain
	assert.False(t, seenBefore(t, p, 0))
	assert.True(t, seenBefore(t, p, 0))
}

func TestDedupPredicate_FixedDomainWrongHint(t *testing.T) {
	p := NewDedupPredicate(true, 10)
	_, err := p.SeenBefore(11)
	require.Error(t, err, "ids beyond the maxOriginalId hint must be rejected")
}

func TestDedupPredicate_UnknownDomain(t *testing.T) {
	p := NewDedupPredicate(true, -1)
	assert.False(t, seenBefore(t, p, 1<<27))
	assert.True(t, seenBefore(t, p, 1<<27))
	assert.False(t, seenBefore(t, p, 3))
}

func TestDedupPredicate_ConcurrentExactlyOnce(t *testing.T) {
	p := NewDedupPredicate(true, 1000)

	const workers = 4
	const ids = 1000
	firsts := make([]int64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			perm := rand.New(rand.NewSource(int64(w))).Perm(ids)
			for _, id := range perm {
				seen, err := p.SeenBefore(int64(id))
				if err != nil {
					t.Error(err)
					return
				}
				if !seen {
					firsts[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	var total int64
	for _, c := range firsts {
		total += c
	}
	assert.Equal(t, int64(ids), total, "each id admitted exactly once")
}

func TestParseBuilderType(t *testing.T) {
	bt, err := ParseBuilderType("")
	require.NoError(t, err)
	assert.Equal(t, BuilderTypeDense, bt)

	bt, err = ParseBuilderType("paged")
	require.NoError(t, err)
	assert.Equal(t, BuilderTypePaged, bt)

	_, err = ParseBuilderType("mmap")
	assert.Error(t, err)

	assert.True(t, BuilderTypeDense.SupportsDedup())
	assert.False(t, BuilderTypeHighLimit.SupportsDedup())
}
