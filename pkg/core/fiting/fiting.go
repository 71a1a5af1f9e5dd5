// Package fiting 实现 FITing-Tree：在误差界 ε 下把有序数组贪心切成线性段，
// 段起点键由一棵 B-Tree 索引，每个段带一个小的有序增量缓冲区。
package fiting

import (
	"log"
	"math"
	"slices"
	"unsafe"

	"indexbench/pkg/common"
	"indexbench/pkg/core/btree"
)

// segEntry 是段索引中的元素：段起点键 -> 段下标
type segEntry struct {
	key common.KeyType
	idx int
}

func segLess(a, b segEntry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.idx < b.idx
}

type Tree struct {
	policy   Policy
	data     []common.KeyType
	segments []Segment
	index    *btree.Tree[segEntry]
	buffers  [][]common.KeyType
	buffered int

	rebuilds int
}

func New(policy Policy) *Tree {
	policy = policy.withDefaults()
	return &Tree{
		policy: policy,
		index:  btree.New(policy.IndexOrder, segLess),
	}
}

func (t *Tree) Policy() Policy { return t.policy }

// Len 主数组中的键数，不含缓冲区
func (t *Tree) Len() int { return len(t.data) }

// Buffered 所有缓冲区中尚未合并的键数
func (t *Tree) Buffered() int { return t.buffered }

func (t *Tree) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// Build 对输入的拷贝排序，然后切段
func (t *Tree) Build(keys []common.KeyType) {
	t.data = append(make([]common.KeyType, 0, len(keys)), keys...)
	slices.Sort(t.data)
	t.buffers = nil
	t.buffered = 0
	t.fitSegments()
}

// fitSegments 从头贪心切段，重建段索引，并为每个段分配空缓冲区
func (t *Tree) fitSegments() {
	t.segments = t.segments[:0]
	eps := float64(t.policy.Epsilon)
	for start := 0; start < len(t.data); {
		length := greedyFit(t.data, start, eps, t.policy.MaxSegmentSize)
		lm, maxErr := fitRange(t.data, start, length)
		t.segments = append(t.segments, Segment{
			StartKey:    t.data[start],
			Slope:       lm.Slope,
			Intercept:   lm.Intercept,
			MaxError:    errorBound(maxErr),
			StartPos:    start,
			EndPos:      start + length - 1,
			createdSpan: length,
		})
		start += length
	}

	t.index.Clear()
	for i := range t.segments {
		t.index.Insert(segEntry{key: t.segments[i].StartKey, idx: i})
	}
	t.buffers = make([][]common.KeyType, len(t.segments))
}

// rebuild 把所有缓冲区并入主数组后重新切段；段下标会整体变化，缓冲区必须先清空
func (t *Tree) rebuild(reason string) {
	merged := t.buffered
	if t.buffered > 0 {
		pending := make([]common.KeyType, 0, t.buffered)
		for _, buf := range t.buffers {
			pending = append(pending, buf...)
		}
		slices.Sort(pending)
		t.data = mergeSorted(t.data, pending)
		t.buffered = 0
	}
	t.fitSegments()
	t.rebuilds++
	log.Printf("[FITing] rebuild (%s): %d keys, %d segments, merged %d buffered keys",
		reason, len(t.data), len(t.segments), merged)
}

func mergeSorted(a, b []common.KeyType) []common.KeyType {
	out := make([]common.KeyType, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j] < a[i] {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// segmentFor 通过段索引找到起点键 <= key 的最后一个段；比所有段都小的键归第 0 段
func (t *Tree) segmentFor(key common.KeyType) int {
	e, ok := t.index.Floor(segEntry{key: key, idx: math.MaxInt})
	if !ok {
		return 0
	}
	return e.idx
}

// Lookup 返回 key 在主数组中的下标，缓冲区中的键不可见（见 Contains）
func (t *Tree) Lookup(key common.KeyType) int {
	if len(t.data) == 0 {
		return common.NotFound
	}
	seg := &t.segments[t.segmentFor(key)]
	w := seg.window(key, len(t.data))
	return common.FindInWindow(t.data, key, w.Begin, w.End)
}

// SearchBound 返回 key 的预测窗口 [Begin, End)
func (t *Tree) SearchBound(key common.KeyType) common.Bound {
	if len(t.data) == 0 {
		return common.Bound{}
	}
	return t.segments[t.segmentFor(key)].window(key, len(t.data))
}

// Contains 同时检查主数组和所属段的缓冲区
func (t *Tree) Contains(key common.KeyType) bool {
	if t.Lookup(key) != common.NotFound {
		return true
	}
	if len(t.buffers) == 0 {
		return false
	}
	_, found := slices.BinarySearch(t.buffers[t.segmentFor(key)], key)
	return found
}

// RangeQuery 返回 [lo, hi] 内的全部键（含缓冲区中的键），有序。
// 两端各自在所属段的预测窗口内求边界，窗口不对时退回全数组搜索。
func (t *Tree) RangeQuery(lo, hi common.KeyType) []common.KeyType {
	if lo > hi || len(t.data) == 0 {
		return nil
	}
	n := len(t.data)
	first, last := t.segmentFor(lo), t.segmentFor(hi)

	sw := t.segments[first].window(lo, n)
	ew := t.segments[last].window(hi, n)
	start := common.LowerBound(t.data, lo, sw.Begin, sw.End)
	end := common.UpperBound(t.data, hi, ew.Begin, ew.End)

	var out []common.KeyType
	if start < end {
		out = append(out, t.data[start:end]...)
	}
	if t.buffered == 0 {
		return out
	}

	var pending []common.KeyType
	for s := first; s <= last; s++ {
		buf := t.buffers[s]
		i, _ := slices.BinarySearch(buf, lo)
		for ; i < len(buf) && buf[i] <= hi; i++ {
			pending = append(pending, buf[i])
		}
	}
	if len(pending) == 0 {
		return out
	}
	return mergeSorted(out, pending)
}

// MemoryUsage 段数组、段索引、主数组以及所有缓冲区容量之和
func (t *Tree) MemoryUsage() int {
	total := int(unsafe.Sizeof(*t))
	total += cap(t.segments) * int(unsafe.Sizeof(Segment{}))
	total += t.index.MemoryUsage()
	total += cap(t.data) * common.KeySize
	total += cap(t.buffers) * int(unsafe.Sizeof([]common.KeyType(nil)))
	for _, buf := range t.buffers {
		total += cap(buf) * common.KeySize
	}
	return total
}
