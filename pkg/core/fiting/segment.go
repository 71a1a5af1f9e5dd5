package fiting

import (
	"math"
	"math/bits"
	"sort"

	"indexbench/pkg/common"
	"indexbench/pkg/model"
)

// Segment 用一条直线近似主数组的连续区间 [StartPos, EndPos]。
// 预测位置 = StartPos + Intercept + Slope*(key-StartKey)，
// 区间内每个键的真实位置与预测之差不超过 MaxError。
type Segment struct {
	StartKey  common.KeyType
	Slope     float64
	Intercept float64
	MaxError  int
	StartPos  int
	EndPos    int

	createdSpan int
}

func (s *Segment) Span() int { return s.EndPos - s.StartPos + 1 }

// predict 返回裁剪到段范围内的预测位置
func (s *Segment) predict(key common.KeyType) float64 {
	p := float64(s.StartPos) + s.Intercept + s.Slope*common.Distance(key, s.StartKey)
	if math.IsNaN(p) || p < float64(s.StartPos) {
		return float64(s.StartPos)
	}
	if p > float64(s.EndPos) {
		return float64(s.EndPos)
	}
	return p
}

// window 返回 key 的搜索窗口 [Begin, End)，已裁剪到段和数组范围
func (s *Segment) window(key common.KeyType, n int) common.Bound {
	p := s.predict(key)
	e := float64(s.MaxError)
	lo := max(common.ClampToInt(math.Floor(p-e), s.StartPos, s.EndPos), 0)
	hi := min(common.ClampToInt(math.Ceil(p+e), s.StartPos, s.EndPos), n-1)
	return common.Bound{Begin: lo, End: hi + 1}
}

// fitTolerance 吸收精确共线点拟合时的浮点舍入
const fitTolerance = 1e-9

// fitRange 对 data[start:start+length] 拟合最小二乘直线，返回模型和最大误差
func fitRange(data []common.KeyType, start, length int) (model.LinearModel, float64) {
	var lm model.LinearModel
	base := data[start]
	for j := 0; j < length; j++ {
		lm.Observe(common.Distance(data[start+j], base), float64(j))
	}
	lm.Solve()

	maxErr := 0.0
	for j := 0; j < length; j++ {
		d := math.Abs(lm.PredictXY(common.Distance(data[start+j], base)) - float64(j))
		if d > maxErr {
			maxErr = d
		}
	}
	return lm, maxErr
}

// errorBound 把浮点误差向上取整为整数误差界
func errorBound(maxErr float64) int {
	return max(int(math.Ceil(maxErr-fitTolerance)), 0)
}

// greedyFit 从 start 开始逐个加入键，每加一个键重新求最小二乘直线，
// 最大误差第一次超过 eps 时停止，返回此前的长度（至少为 1）。
// 最大误差由凸包在 O(log n) 内求得，每步不必扫描整段。
func greedyFit(data []common.KeyType, start int, eps float64, maxLen int) int {
	limit := len(data) - start
	if maxLen > 0 && maxLen < limit {
		limit = maxLen
	}

	base := data[start]
	var lm model.LinearModel
	var h hull
	length := 0
	for length < limit {
		x := uint64(data[start+length]) - uint64(base)
		next := lm
		next.Observe(float64(x), float64(length))
		next.Solve()
		h.add(hullPoint{x: x, y: uint64(length)})
		if length > 0 && h.maxError(&next) > eps+fitTolerance {
			break
		}
		lm = next
		length++
	}
	return length
}

// hullPoint 是 (相对段起点的偏移, 段内位置)
type hullPoint struct {
	x uint64
	y uint64
}

// hull 维护已加入点的上下凸包。点按 x 非降、y 严格递增到达，
// 任意两点之间 dx >= 0、dy > 0，所以转向判断可以用无符号 128 位乘积精确比较。
type hull struct {
	lower []hullPoint
	upper []hullPoint
}

// mulLess 精确判断 a*b < c*d
func mulLess(a, b, c, d uint64) bool {
	h1, l1 := bits.Mul64(a, b)
	h2, l2 := bits.Mul64(c, d)
	return h1 < h2 || (h1 == h2 && l1 < l2)
}

func (h *hull) add(p hullPoint) {
	// 下凸包只保留左转：cross(AB, AP) > 0
	for n := len(h.lower); n >= 2; n-- {
		a, b := h.lower[n-2], h.lower[n-1]
		if mulLess(b.y-a.y, p.x-a.x, b.x-a.x, p.y-a.y) {
			break
		}
		h.lower = h.lower[:n-1]
	}
	h.lower = append(h.lower, p)

	// 上凸包只保留右转：cross(AB, AP) < 0
	for n := len(h.upper); n >= 2; n-- {
		a, b := h.upper[n-2], h.upper[n-1]
		if mulLess(b.x-a.x, p.y-a.y, b.y-a.y, p.x-a.x) {
			break
		}
		h.upper = h.upper[:n-1]
	}
	h.upper = append(h.upper, p)
}

// maxError 返回 max |lm(x) - y|。
// 预测偏高最多的点在下凸包上，偏低最多的点在上凸包上，
// 两者都是按斜率二分得到的顶点；相邻顶点一并求值以吸收斜率比较的舍入。
func (h *hull) maxError(lm *model.LinearModel) float64 {
	a := lm.Slope
	lo := sort.Search(len(h.lower)-1, func(i int) bool {
		dx := float64(h.lower[i+1].x - h.lower[i].x)
		dy := float64(h.lower[i+1].y - h.lower[i].y)
		return dy >= a*dx
	})
	up := sort.Search(len(h.upper)-1, func(i int) bool {
		dx := float64(h.upper[i+1].x - h.upper[i].x)
		dy := float64(h.upper[i+1].y - h.upper[i].y)
		return dy <= a*dx
	})

	worst := 0.0
	around := func(ps []hullPoint, mid int) {
		for i := max(mid-1, 0); i <= min(mid+1, len(ps)-1); i++ {
			if d := math.Abs(lm.PredictXY(float64(ps[i].x)) - float64(ps[i].y)); d > worst {
				worst = d
			}
		}
	}
	around(h.lower, lo)
	around(h.upper, up)
	return worst
}
