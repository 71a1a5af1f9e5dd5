package bplus

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

func TestLeafSplitPromotesRightFirstKey(t *testing.T) {
	tr := New[int](2)
	for _, k := range []int{1, 2, 3, 4} {
		tr.Insert(k)
	}
	require.NoError(t, tr.Check())

	root := tr.nodes[tr.root]
	require.False(t, root.leaf)
	assert.Equal(t, []int{2}, root.keys)
	assert.Equal(t, []int{1}, tr.nodes[root.children[0]].keys)
	assert.Equal(t, []int{2, 3, 4}, tr.nodes[root.children[1]].keys)
	assert.Equal(t, root.children[1], tr.nodes[root.children[0]].next)
}

func TestSearchAndRange(t *testing.T) {
	tr := New[common.KeyType](3)
	for k := common.KeyType(100); k > 0; k -= 10 {
		tr.Insert(k)
	}
	require.NoError(t, tr.Check())

	assert.True(t, tr.Search(30))
	assert.True(t, tr.Search(100))
	assert.False(t, tr.Search(35))
	assert.Equal(t, []common.KeyType{20, 30, 40}, tr.RangeSearch(15, 45))
	assert.Equal(t, []common.KeyType{10}, tr.RangeSearch(0, 10))
	assert.Empty(t, tr.RangeSearch(45, 15))
	assert.Empty(t, tr.RangeSearch(101, 200))
}

func TestEmpty(t *testing.T) {
	tr := New[int](5)
	assert.False(t, tr.Search(3))
	assert.Empty(t, tr.RangeSearch(0, 100))
	assert.Empty(t, tr.Keys())
	assert.Positive(t, tr.MemoryUsage())
	require.NoError(t, tr.Check())
}

func TestRandomInsertMatchesSortedSlice(t *testing.T) {
	for _, order := range []int{2, 3, 8} {
		rnd := rand.New(rand.NewSource(int64(order) * 31))
		tr := New[common.KeyType](order)
		ref := make([]common.KeyType, 0, 2000)
		for i := 0; i < 2000; i++ {
			k := common.KeyType(rnd.Intn(1500))
			tr.Insert(k)
			ref = append(ref, k)
		}
		require.NoError(t, tr.Check(), "order %d", order)
		slices.Sort(ref)
		require.Equal(t, ref, tr.Keys())

		for _, k := range ref {
			require.True(t, tr.Search(k))
		}
		for q := 0; q < 300; q++ {
			lo := common.KeyType(rnd.Intn(1600) - 50)
			hi := lo + common.KeyType(rnd.Intn(200))
			start, _ := slices.BinarySearch(ref, lo)
			end := start
			for end < len(ref) && ref[end] <= hi {
				end++
			}
			got := tr.RangeSearch(lo, hi)
			if start == end {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, ref[start:end], got, "range [%d, %d]", lo, hi)
			}
		}
	}
}

func TestMemoryGrowsWithKeys(t *testing.T) {
	tr := New[int](4)
	before := tr.MemoryUsage()
	for i := 0; i < 1000; i++ {
		tr.Insert(i)
	}
	assert.Greater(t, tr.MemoryUsage(), before)
	assert.Greater(t, tr.Height(), 1)
}
