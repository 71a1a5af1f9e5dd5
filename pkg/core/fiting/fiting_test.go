package fiting

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexbench/pkg/common"
	"indexbench/pkg/core"
)

var (
	_ core.LearnedIndex = (*Tree)(nil)
	_ core.Builder      = (*Tree)(nil)
	_ core.Inserter     = (*Tree)(nil)
)

func withEpsilon(eps int) Policy {
	p := DefaultPolicy()
	p.Epsilon = eps
	return p
}

func randomKeys(rnd *rand.Rand, n int, span int64) []common.KeyType {
	seen := make(map[common.KeyType]struct{}, n)
	keys := make([]common.KeyType, 0, n)
	for len(keys) < n {
		k := common.KeyType(rnd.Int63n(span))
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func refRange(sorted []common.KeyType, lo, hi common.KeyType) []common.KeyType {
	var out []common.KeyType
	for _, k := range sorted {
		if k >= lo && k <= hi {
			out = append(out, k)
		}
	}
	return out
}

func TestTwoLinearRuns(t *testing.T) {
	keys := []common.KeyType{0, 1, 2, 3, 100, 101, 102}

	tr := New(withEpsilon(1))
	tr.Build(keys)
	require.NoError(t, tr.Check())
	segs := tr.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, common.KeyType(0), segs[0].StartKey)
	assert.Equal(t, 3, segs[0].EndPos)
	assert.Equal(t, common.KeyType(100), segs[1].StartKey)
	assert.Equal(t, []common.KeyType{0, 1, 2, 3}, tr.RangeQuery(0, 3))

	// 误差界放宽到 2，查询结果不变
	loose := New(withEpsilon(2))
	loose.Build(keys)
	require.NoError(t, loose.Check())
	assert.Equal(t, []common.KeyType{0, 1, 2, 3}, loose.RangeQuery(0, 3))
	assert.Equal(t, 5, loose.Lookup(101))
	assert.Equal(t, common.NotFound, loose.Lookup(50))
}

func TestZeroEpsilonSegments(t *testing.T) {
	tr := New(withEpsilon(0))
	tr.Build([]common.KeyType{16, 1, 8, 4, 2})
	require.NoError(t, tr.Check())

	st := tr.Stats()
	assert.Equal(t, 5, st.Keys)
	assert.Equal(t, 3, st.Segments)
	assert.Zero(t, st.MaxError)
	for i, k := range []common.KeyType{1, 2, 4, 8, 16} {
		assert.Equal(t, i, tr.Lookup(k))
	}
}

func TestEmptyTree(t *testing.T) {
	tr := New(DefaultPolicy())
	assert.Equal(t, common.NotFound, tr.Lookup(1))
	assert.Empty(t, tr.RangeQuery(0, 10))
	assert.False(t, tr.Contains(1))
	require.NoError(t, tr.Check())

	require.True(t, tr.InsertDelta(7))
	assert.Equal(t, 0, tr.Lookup(7))
	assert.False(t, tr.InsertInPlace(7))
	require.NoError(t, tr.Check())
}

func TestBuildLookupAndRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	keys := randomKeys(rnd, 20000, 1<<48)

	for _, eps := range []int{0, 4, 32, 256} {
		tr := New(withEpsilon(eps))
		tr.Build(keys)
		require.NoError(t, tr.Check(), "eps %d", eps)

		sorted := slices.Clone(keys)
		slices.Sort(sorted)
		for i, k := range sorted {
			require.Equal(t, i, tr.Lookup(k))
			require.True(t, tr.SearchBound(k).Contains(i))
		}
		for q := 0; q < 200; q++ {
			lo := common.KeyType(rnd.Int63n(1 << 48))
			hi := lo + common.KeyType(rnd.Int63n(1<<40))
			assert.Equal(t, refRange(sorted, lo, hi), tr.RangeQuery(lo, hi))
		}
		assert.Empty(t, tr.RangeQuery(10, 5))
	}
}

func TestMaxSegmentSize(t *testing.T) {
	keys := make([]common.KeyType, 1000)
	for i := range keys {
		keys[i] = common.KeyType(i * 3)
	}
	p := withEpsilon(8)
	p.MaxSegmentSize = 100
	tr := New(p)
	tr.Build(keys)
	require.NoError(t, tr.Check())
	assert.Equal(t, 10, tr.Stats().Segments)
}

func TestInsertInPlace(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	all := randomKeys(rnd, 6000, 1<<32)
	initial, extra := all[:3000], all[3000:]

	tr := New(withEpsilon(16))
	tr.Build(initial)

	assert.False(t, tr.InsertInPlace(initial[0]), "duplicate must be rejected")
	for i, k := range extra {
		require.True(t, tr.InsertInPlace(k))
		if i%500 == 0 {
			require.NoError(t, tr.Check())
		}
	}
	require.NoError(t, tr.Check())
	assert.Equal(t, len(all), tr.Len())
	assert.Positive(t, tr.Stats().Rebuilds)

	sorted := slices.Clone(all)
	slices.Sort(sorted)
	for i, k := range sorted {
		require.Equal(t, i, tr.Lookup(k))
	}
	assert.Equal(t, refRange(sorted, sorted[100], sorted[900]), tr.RangeQuery(sorted[100], sorted[900]))
}

func TestInsertBelowFirstSegment(t *testing.T) {
	tr := New(withEpsilon(2))
	tr.Build([]common.KeyType{100, 110, 120, 130})
	require.True(t, tr.InsertInPlace(5))
	require.True(t, tr.InsertInPlace(-40))
	require.NoError(t, tr.Check())
	assert.Equal(t, 0, tr.Lookup(-40))
	assert.Equal(t, 1, tr.Lookup(5))
	assert.Equal(t, 2, tr.Lookup(100))
}

func TestInsertDeltaBuffersAndFlushesWhenFull(t *testing.T) {
	keys := make([]common.KeyType, 100)
	for i := range keys {
		keys[i] = common.KeyType(i * 10)
	}
	tr := New(Policy{Epsilon: 4, DeltaCapacity: 4, FlushRatio: 1.0})
	tr.Build(keys)
	require.Equal(t, 1, tr.Stats().Segments)

	assert.False(t, tr.InsertDelta(10), "already in the main array")
	for _, k := range []common.KeyType{1, 2, 3, 4} {
		require.True(t, tr.InsertDelta(k))
	}
	assert.False(t, tr.InsertDelta(3), "already buffered")
	require.NoError(t, tr.Check())
	assert.Equal(t, 4, tr.Buffered())
	assert.Equal(t, 100, tr.Len())

	assert.True(t, tr.Contains(2))
	assert.Equal(t, common.NotFound, tr.Lookup(2))
	assert.Equal(t, []common.KeyType{0, 1, 2, 3, 4, 10}, tr.RangeQuery(0, 10))

	require.True(t, tr.InsertDelta(5))
	require.NoError(t, tr.Check())
	assert.Zero(t, tr.Buffered())
	assert.Equal(t, 105, tr.Len())
	for i, k := range []common.KeyType{0, 1, 2, 3, 4, 5, 10} {
		assert.Equal(t, i, tr.Lookup(k))
	}
	assert.Equal(t, 1, tr.Stats().Rebuilds)
}

func TestInsertDeltaFlushRatio(t *testing.T) {
	keys := make([]common.KeyType, 100)
	for i := range keys {
		keys[i] = common.KeyType(i * 1000)
	}
	tr := New(Policy{Epsilon: 4, DeltaCapacity: 64, FlushRatio: 0.05})
	tr.Build(keys)

	for i := 1; i <= 5; i++ {
		require.True(t, tr.InsertDelta(common.KeyType(i*1000+1)))
	}
	assert.Equal(t, 5, tr.Buffered())

	require.True(t, tr.InsertDelta(6001))
	assert.Zero(t, tr.Buffered())
	assert.Equal(t, 106, tr.Len())
	require.NoError(t, tr.Check())
}

func TestRandomDeltaInserts(t *testing.T) {
	rnd := rand.New(rand.NewSource(13))
	all := randomKeys(rnd, 8000, 1<<40)

	tr := New(withEpsilon(32))
	tr.Build(all[:4000])
	for _, k := range all[4000:] {
		require.True(t, tr.InsertDelta(k))
	}
	require.NoError(t, tr.Check())
	for _, k := range all {
		require.True(t, tr.Contains(k))
	}

	sorted := slices.Clone(all)
	slices.Sort(sorted)
	assert.Equal(t, sorted, tr.RangeQuery(sorted[0], sorted[len(sorted)-1]))

	tr.Flush()
	require.NoError(t, tr.Check())
	assert.Equal(t, len(all), tr.Len())
	for i, k := range sorted {
		require.Equal(t, i, tr.Lookup(k))
	}
}

func TestMemoryUsage(t *testing.T) {
	tr := New(DefaultPolicy())
	keys := make([]common.KeyType, 5000)
	for i := range keys {
		keys[i] = common.KeyType(i * i)
	}
	tr.Build(keys)
	assert.GreaterOrEqual(t, tr.MemoryUsage(), len(keys)*common.KeySize)
}

// oneAtATime 逐键扩展、每步全段扫描误差的朴素切段，返回各段长度
func oneAtATime(data []common.KeyType, eps float64) []int {
	var spans []int
	for start := 0; start < len(data); {
		length := 1
		for start+length < len(data) {
			if _, e := fitRange(data, start, length+1); e > eps+fitTolerance {
				break
			}
			length++
		}
		spans = append(spans, length)
		start += length
	}
	return spans
}

func segmentSpans(tr *Tree) []int {
	var spans []int
	for _, s := range tr.Segments() {
		spans = append(spans, s.Span())
	}
	return spans
}

func TestSegmentsMatchOneKeyAtATime(t *testing.T) {
	steps := []int64{0, 1, 1, 2, 3, 40, 250}
	rnd := rand.New(rand.NewSource(23))
	for round := 0; round < 300; round++ {
		n := 20 + rnd.Intn(80)
		keys := make([]common.KeyType, n)
		k := rnd.Int63n(1000) - 500
		for i := range keys {
			k += steps[rnd.Intn(len(steps))]
			keys[i] = common.KeyType(k)
		}
		eps := 1 + rnd.Intn(3)

		tr := New(withEpsilon(eps))
		tr.Build(keys)
		require.NoError(t, tr.Check())
		require.Equal(t, oneAtATime(keys, float64(eps)), segmentSpans(tr), "round %d eps=%d keys=%v", round, eps, keys)
	}
}

func TestSegmentsMatchOneKeyAtATimeOnWideKeys(t *testing.T) {
	rnd := rand.New(rand.NewSource(29))
	keys := randomKeys(rnd, 400, 1<<62)
	keys = append(keys, -1<<62, 1<<62+12345)
	slices.Sort(keys)
	for _, eps := range []int{0, 2, 8} {
		tr := New(withEpsilon(eps))
		tr.Build(keys)
		require.NoError(t, tr.Check())
		assert.Equal(t, oneAtATime(keys, float64(eps)), segmentSpans(tr), "eps=%d", eps)
	}
}

func TestRebuildTriggerAtSpanLimit(t *testing.T) {
	keys := make([]common.KeyType, 10)
	for i := range keys {
		keys[i] = common.KeyType(i * 100)
	}
	p := withEpsilon(4)
	p.RebuildFactor = 2
	tr := New(p)
	tr.Build(keys)
	require.Equal(t, 1, tr.Stats().Segments)
	require.Equal(t, 10, tr.Segments()[0].Span())

	// 跨度恰好等于 2*10 时不重建
	for i := 0; i < 10; i++ {
		require.True(t, tr.InsertInPlace(common.KeyType(i*100+1)))
	}
	require.NoError(t, tr.Check())
	assert.Equal(t, 20, tr.Segments()[0].Span())
	assert.Zero(t, tr.Stats().Rebuilds)

	// 再插一个键跨度变为 21，触发重建
	require.True(t, tr.InsertInPlace(2000))
	require.NoError(t, tr.Check())
	assert.Equal(t, 1, tr.Stats().Rebuilds)
	assert.Equal(t, 21, tr.Len())
	assert.Equal(t, 20, tr.Lookup(2000))
}
