package fiting

import (
	"log"
	"slices"

	"indexbench/pkg/common"
)

// InsertInPlace 直接插入主数组。
// 在所属段的误差窗口内定位插入点，之后所有段整体后移一位；
// 被插入的段误差界加一。段跨度超过创建时的 RebuildFactor 倍时全量重建。
// 重复键不插入，返回 false。
func (t *Tree) InsertInPlace(key common.KeyType) bool {
	if len(t.data) == 0 {
		t.data = append(t.data, key)
		t.rebuild("first key")
		return true
	}

	s := t.segmentFor(key)
	seg := &t.segments[s]
	w := seg.window(key, len(t.data))
	pos := common.LowerBound(t.data, key, w.Begin, w.End+1)
	if pos < len(t.data) && t.data[pos] == key {
		return false
	}
	if t.buffered > 0 && t.bufferHas(key) {
		return false
	}

	t.data = slices.Insert(t.data, pos, key)
	seg.EndPos++
	seg.MaxError++
	for i := s + 1; i < len(t.segments); i++ {
		t.segments[i].StartPos++
		t.segments[i].EndPos++
	}

	if float64(seg.Span()) > t.policy.RebuildFactor*float64(seg.createdSpan) {
		t.rebuild("segment span grew")
	}
	return true
}

// InsertDelta 先写入所属段的缓冲区。缓冲区满时把所有缓冲键并入主数组并重建，
// 然后把新键原地插入；所有缓冲区合计超过主数组 FlushRatio 时同样整体合并。
func (t *Tree) InsertDelta(key common.KeyType) bool {
	if len(t.data) == 0 {
		return t.InsertInPlace(key)
	}
	if t.Lookup(key) != common.NotFound {
		return false
	}

	s := t.segmentFor(key)
	buf := t.buffers[s]
	i, found := slices.BinarySearch(buf, key)
	if found {
		return false
	}

	if len(buf) >= t.policy.DeltaCapacity {
		log.Printf("[FITing] delta buffer of segment %d full (%d keys)", s, len(buf))
		t.rebuild("delta buffer full")
		return t.InsertInPlace(key)
	}

	if buf == nil {
		buf = make([]common.KeyType, 0, t.policy.DeltaCapacity)
	}
	t.buffers[s] = slices.Insert(buf, i, key)
	t.buffered++

	if float64(t.buffered) > t.policy.FlushRatio*float64(len(t.data)) {
		t.rebuild("delta buffers over flush ratio")
	}
	return true
}

// Flush 把所有缓冲区并入主数组
func (t *Tree) Flush() {
	if t.buffered > 0 {
		t.rebuild("explicit flush")
	}
}

func (t *Tree) bufferHas(key common.KeyType) bool {
	if len(t.buffers) == 0 {
		return false
	}
	_, found := slices.BinarySearch(t.buffers[t.segmentFor(key)], key)
	return found
}
