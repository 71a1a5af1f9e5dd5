// Package radix 实现 RadixSpline：有序数据上的单调分段线性样条，
// 加上一张按键前缀分桶的 radix 表，用 O(1) 定位样条段。
package radix

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"indexbench/pkg/common"
)

const (
	DefaultBits = 18
	maxBits     = 28
)

type Spline struct {
	bits  int
	data  []common.KeyType
	knotX []common.KeyType // 严格递增
	knotY []int            // 非递减
	table []int            // 长度 2^bits+1，非递减
	minK  common.KeyType
	maxK  common.KeyType
	span  float64
}

type Stats struct {
	Keys      int
	Knots     int
	Bits      int
	TableSize int
}

// New 创建 radix 宽度为 bits 的空样条，bits 非法时使用 DefaultBits
func New(bits int) *Spline {
	if bits <= 0 || bits > maxBits {
		bits = DefaultBits
	}
	return &Spline{bits: bits}
}

func (s *Spline) Len() int { return len(s.data) }

func (s *Spline) Stats() Stats {
	return Stats{Keys: len(s.data), Knots: len(s.knotX), Bits: s.bits, TableSize: len(s.table)}
}

// Build 保存（必要时排序的）数据拷贝，每遇到一个新的键值就生成一个样条节点，
// 然后用单调游标一次填满 radix 表。
func (s *Spline) Build(keys []common.KeyType) {
	s.data = append(make([]common.KeyType, 0, len(keys)), keys...)
	if !slices.IsSorted(s.data) {
		slices.Sort(s.data)
	}
	s.knotX, s.knotY, s.table = s.knotX[:0], s.knotY[:0], nil
	if len(s.data) == 0 {
		return
	}

	for i, k := range s.data {
		if len(s.knotX) == 0 || k != s.knotX[len(s.knotX)-1] {
			s.knotX = append(s.knotX, k)
			s.knotY = append(s.knotY, i)
		}
	}
	s.minK, s.maxK = s.data[0], s.data[len(s.data)-1]
	s.span = common.Distance(s.maxK, s.minK)

	buckets := 1 << s.bits
	s.table = make([]int, buckets+1)
	cursor := 0
	for i := 0; i <= buckets; i++ {
		// 第 i 项：键 <= 桶 i 下边界的最后一个节点
		bound := float64(i) * s.span / float64(buckets)
		for cursor+1 < len(s.knotX) && common.Distance(s.knotX[cursor+1], s.minK) <= bound {
			cursor++
		}
		s.table[i] = cursor
	}
	s.table[buckets] = len(s.knotX) - 1
}

func (s *Spline) bucket(key common.KeyType) int {
	buckets := 1 << s.bits
	f := math.Floor(common.Distance(key, s.minK) / s.span * float64(buckets))
	return common.ClampToInt(f, 0, buckets-1)
}

// segmentFor 返回满足 knotX[seg] <= key < knotX[seg+1] 的节点下标，
// 先在 radix 表给出的节点窗口内找，窗口不对时对全部节点二分
func (s *Spline) segmentFor(key common.KeyType) int {
	r := s.bucket(key)
	lo, hi := s.table[r], min(s.table[r+1]+1, len(s.knotX))
	seg := lo + sort.Search(hi-lo, func(i int) bool { return s.knotX[lo+i] > key }) - 1
	if seg >= 0 && seg+1 < len(s.knotX) && s.knotX[seg] <= key && key < s.knotX[seg+1] {
		return seg
	}
	return sort.Search(len(s.knotX), func(i int) bool { return s.knotX[i] > key }) - 1
}

// SearchBound 返回 key 可能所在的下标窗口 [Begin, End)，裁剪到 [0, n]。
// 误差余量取所在样条段两端位置之差。
func (s *Spline) SearchBound(key common.KeyType) common.Bound {
	n := len(s.data)
	switch {
	case n == 0:
		return common.Bound{}
	case len(s.knotX) == 1:
		return common.Bound{Begin: 0, End: n}
	case key <= s.minK:
		return common.Bound{Begin: 0, End: 1}
	case key >= s.maxK:
		return common.Bound{Begin: s.knotY[len(s.knotY)-1], End: n}
	}

	seg := s.segmentFor(key)
	x1, x2 := s.knotX[seg], s.knotX[seg+1]
	y1, y2 := float64(s.knotY[seg]), float64(s.knotY[seg+1])
	pos := y1 + common.Distance(key, x1)/common.Distance(x2, x1)*(y2-y1)
	margin := math.Abs(y2 - y1)

	begin := common.ClampToInt(math.Floor(pos-margin), 0, n)
	end := common.ClampToInt(math.Ceil(pos+margin)+1, 0, n)
	return common.Bound{Begin: begin, End: end}
}

// Lookup 返回 key 的下标或 common.NotFound
func (s *Spline) Lookup(key common.KeyType) int {
	if len(s.data) == 0 {
		return common.NotFound
	}
	b := s.SearchBound(key)
	return common.FindInWindow(s.data, key, b.Begin, b.End)
}

// RangeQuery 两端分别在预测窗口内求边界，返回 [lo, hi] 内键的拷贝
func (s *Spline) RangeQuery(lo, hi common.KeyType) []common.KeyType {
	if lo > hi || len(s.data) == 0 {
		return nil
	}
	lb, ub := s.SearchBound(lo), s.SearchBound(hi)
	start := common.LowerBound(s.data, lo, lb.Begin, lb.End)
	end := common.UpperBound(s.data, hi, ub.Begin, ub.End)
	if start >= end {
		return nil
	}
	return append([]common.KeyType(nil), s.data[start:end]...)
}

// MemoryUsage 数据数组、样条节点与 radix 表
func (s *Spline) MemoryUsage() int {
	intSize := strconv.IntSize / 8
	total := cap(s.data) * common.KeySize
	total += cap(s.knotX)*common.KeySize + cap(s.knotY)*intSize
	total += cap(s.table) * intSize
	return total
}
