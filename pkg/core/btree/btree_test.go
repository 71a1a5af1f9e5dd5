package btree

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexbench/pkg/common"
	"indexbench/pkg/core"
)

var _ core.TreeIndex = (*Tree[common.KeyType])(nil)
var _ core.Remover = (*Tree[common.KeyType])(nil)

func TestInsertSearchRange(t *testing.T) {
	tr := NewOrdered[common.KeyType](3)
	for _, k := range []common.KeyType{10, 20, 30, 40, 50} {
		require.True(t, tr.Insert(k))
	}
	require.NoError(t, tr.Check())

	assert.True(t, tr.Search(30))
	assert.False(t, tr.Search(35))
	assert.Equal(t, []common.KeyType{20, 30, 40}, tr.RangeSearch(15, 45))
	assert.Empty(t, tr.RangeSearch(45, 15))
	assert.Empty(t, tr.RangeSearch(51, 100))
}

func TestEmptyTree(t *testing.T) {
	tr := NewOrdered[int](4)
	assert.False(t, tr.Search(1))
	assert.False(t, tr.Remove(1))
	assert.Empty(t, tr.RangeSearch(0, 10))
	_, ok := tr.Floor(5)
	assert.False(t, ok)
	assert.Equal(t, 1, tr.Height())
	assert.Positive(t, tr.MemoryUsage())
	require.NoError(t, tr.Check())
}

func TestRemoveMergeShrinksHeight(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{1, 2, 3, 4} {
		tr.Insert(k)
	}
	require.Equal(t, 2, tr.Height())
	require.True(t, tr.Remove(4))
	require.NoError(t, tr.Check())
	require.Equal(t, 2, tr.Height())

	require.True(t, tr.Remove(1))
	require.NoError(t, tr.Check())
	assert.Equal(t, 1, tr.Height())
	assert.Equal(t, []int{2, 3}, tr.Items())
}

func TestDuplicatesAreKept(t *testing.T) {
	tr := NewOrdered[int](2)
	for i := 0; i < 5; i++ {
		tr.Insert(7)
		tr.Insert(i)
	}
	require.NoError(t, tr.Check())
	assert.Equal(t, []int{7, 7, 7, 7, 7}, tr.RangeSearch(7, 7))

	for i := 0; i < 5; i++ {
		require.True(t, tr.Remove(7))
		require.NoError(t, tr.Check())
	}
	assert.False(t, tr.Remove(7))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, tr.Items())
}

func TestFloor(t *testing.T) {
	tr := NewOrdered[int](3)
	for i := 0; i < 100; i += 10 {
		tr.Insert(i)
	}
	v, ok := tr.Floor(55)
	require.True(t, ok)
	assert.Equal(t, 50, v)
	v, ok = tr.Floor(90)
	require.True(t, ok)
	assert.Equal(t, 90, v)
	_, ok = tr.Floor(-1)
	assert.False(t, ok)

	lo, _ := tr.Min()
	hi, _ := tr.Max()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 90, hi)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	for _, order := range []int{2, 3, 5, 16} {
		rnd := rand.New(rand.NewSource(int64(order)))
		tr := NewOrdered[common.KeyType](order)
		var ref []common.KeyType

		for op := 0; op < 3000; op++ {
			k := common.KeyType(rnd.Intn(500))
			if rnd.Intn(3) == 0 {
				idx := slices.Index(ref, k)
				assert.Equal(t, idx >= 0, tr.Remove(k), "remove %d", k)
				if idx >= 0 {
					ref = slices.Delete(ref, idx, idx+1)
				}
			} else {
				tr.Insert(k)
				ref = append(ref, k)
			}
			if op%100 == 0 {
				require.NoError(t, tr.Check(), "order %d op %d", order, op)
			}
		}
		require.NoError(t, tr.Check())

		slices.Sort(ref)
		require.Equal(t, len(ref), tr.Len())
		require.Equal(t, ref, tr.Items())

		for q := 0; q < 200; q++ {
			lo := common.KeyType(rnd.Intn(500))
			hi := lo + common.KeyType(rnd.Intn(100))
			var want []common.KeyType
			for _, k := range ref {
				if k >= lo && k <= hi {
					want = append(want, k)
				}
			}
			assert.Equal(t, want, tr.RangeSearch(lo, hi))
		}

		for _, k := range ref {
			require.True(t, tr.Remove(k))
		}
		require.NoError(t, tr.Check())
		assert.Zero(t, tr.Len())
		assert.Equal(t, 1, tr.Height())
	}
}

func TestCustomLess(t *testing.T) {
	type entry struct {
		key int
		idx int
	}
	tr := New(3, func(a, b entry) bool {
		if a.key != b.key {
			return a.key < b.key
		}
		return a.idx < b.idx
	})
	for i := 0; i < 20; i++ {
		tr.Insert(entry{key: i * 5, idx: i})
	}
	e, ok := tr.Floor(entry{key: 42, idx: int(^uint(0) >> 1)})
	require.True(t, ok)
	assert.Equal(t, entry{key: 40, idx: 8}, e)
}

func TestMemoryUsageRecoversFromCorruption(t *testing.T) {
	tr := NewOrdered[int](2)
	for i := 0; i < 50; i++ {
		tr.Insert(i)
	}
	healthy := tr.MemoryUsage()
	require.Positive(t, healthy)

	tr.nodes[tr.root].children[0] = len(tr.nodes) + 10
	assert.NotPanics(t, func() { tr.MemoryUsage() })
	assert.Error(t, tr.Check())
}
