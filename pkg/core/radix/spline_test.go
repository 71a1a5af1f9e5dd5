package radix

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexbench/pkg/common"
	"indexbench/pkg/core"
)

var (
	_ core.LearnedIndex = (*Spline)(nil)
	_ core.Builder      = (*Spline)(nil)
)

func TestSmallSplineWithDuplicates(t *testing.T) {
	s := New(4)
	s.Build([]common.KeyType{1, 5, 5, 9, 100})

	assert.Equal(t, 4, s.Stats().Knots)
	assert.Equal(t, 3, s.Lookup(9))
	assert.Equal(t, common.NotFound, s.Lookup(7))
	assert.Equal(t, 0, s.Lookup(1))
	assert.Equal(t, 4, s.Lookup(100))
	assert.Contains(t, []int{1, 2}, s.Lookup(5))

	assert.Equal(t, []common.KeyType{5, 5, 9}, s.RangeQuery(2, 50))
	assert.Equal(t, []common.KeyType{1, 5, 5}, s.RangeQuery(0, 5))
	assert.Equal(t, []common.KeyType{100}, s.RangeQuery(100, 1000))
	assert.Empty(t, s.RangeQuery(10, 99))
	assert.Empty(t, s.RangeQuery(50, 2))
}

func TestEmptyAndSingleKnot(t *testing.T) {
	s := New(DefaultBits)
	assert.Equal(t, common.NotFound, s.Lookup(1))
	assert.Empty(t, s.RangeQuery(0, 10))
	s.Build(nil)
	assert.Equal(t, common.NotFound, s.Lookup(1))

	s.Build([]common.KeyType{42, 42, 42})
	assert.Equal(t, 1, s.Stats().Knots)
	assert.Equal(t, common.Bound{Begin: 0, End: 3}, s.SearchBound(7))
	assert.Equal(t, 0, s.Lookup(42))
	assert.Equal(t, []common.KeyType{42, 42, 42}, s.RangeQuery(42, 42))
	assert.Equal(t, common.NotFound, s.Lookup(43))
}

func TestUnsortedInputIsSorted(t *testing.T) {
	s := New(8)
	s.Build([]common.KeyType{30, 10, 20})
	assert.Equal(t, 0, s.Lookup(10))
	assert.Equal(t, 2, s.Lookup(30))
}

func TestRadixTableMonotone(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	keys := make([]common.KeyType, 5000)
	for i := range keys {
		keys[i] = common.KeyType(rnd.Int63n(1 << 30))
	}
	s := New(10)
	s.Build(keys)
	require.Len(t, s.table, 1<<10+1)
	assert.True(t, slices.IsSorted(s.table))
	assert.True(t, slices.IsSorted(s.knotY))
	for i := 1; i < len(s.knotX); i++ {
		require.Less(t, s.knotX[i-1], s.knotX[i])
	}
}

func TestBoundsContainEveryKey(t *testing.T) {
	cases := map[string]func(*rand.Rand) common.KeyType{
		"uniform": func(r *rand.Rand) common.KeyType { return common.KeyType(r.Int63()) },
		"lognormal": func(r *rand.Rand) common.KeyType {
			return common.KeyType(math.Exp(r.NormFloat64()*2) * 1e6)
		},
		"negative": func(r *rand.Rand) common.KeyType { return common.KeyType(r.Int63n(1<<20) - 1<<19) },
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			rnd := rand.New(rand.NewSource(9))
			keys := make([]common.KeyType, 20000)
			for i := range keys {
				keys[i] = gen(rnd)
			}
			slices.Sort(keys)

			s := New(12)
			s.Build(keys)
			for i, k := range keys {
				b := s.SearchBound(k)
				first, _ := slices.BinarySearch(keys, k)
				require.True(t, b.Contains(first) || b.Contains(i), "key %d at %d outside %v", k, i, b)
				require.Equal(t, k, keys[s.Lookup(k)])
			}

			for q := 0; q < 300; q++ {
				a, b := keys[rnd.Intn(len(keys))], keys[rnd.Intn(len(keys))]
				lo, hi := min(a, b), max(a, b)
				start, _ := slices.BinarySearch(keys, lo)
				end, _ := slices.BinarySearch(keys, hi+1)
				assert.Equal(t, keys[start:end], s.RangeQuery(lo, hi))
			}
		})
	}
}

func TestExtremeKeys(t *testing.T) {
	keys := []common.KeyType{math.MinInt64, -1, 0, 1, math.MaxInt64}
	s := New(DefaultBits)
	s.Build(keys)
	for i, k := range keys {
		assert.Equal(t, i, s.Lookup(k))
	}
	assert.Equal(t, keys, s.RangeQuery(math.MinInt64, math.MaxInt64))
	assert.Equal(t, []common.KeyType{-1, 0, 1}, s.RangeQuery(-5, 5))
}

func TestMemoryUsage(t *testing.T) {
	s := New(8)
	s.Build([]common.KeyType{1, 2, 3, 4})
	assert.GreaterOrEqual(t, s.MemoryUsage(), (1<<8+1)*8)
}
