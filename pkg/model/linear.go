package model

import (
	"math"
	"unsafe"

	"indexbench/pkg/common"
)

// LinearModel 一元线性回归 pos = Slope*key + Intercept。
// 用均值与协方差的增量形式累加，支持逐点训练；
// key 接近 2^63 时直接累加 x*x 会丢失全部精度。
type LinearModel struct {
	Slope     float64
	Intercept float64
	n         float64
	meanX     float64
	meanY     float64
	cxx       float64
	cxy       float64
}

func NewLinearModel() *LinearModel {
	return &LinearModel{}
}

// NewLinearModelWith 直接由外部参数构造（例如加载外部训练的 RMI）
func NewLinearModelWith(slope, intercept float64) LinearModel {
	return LinearModel{Slope: slope, Intercept: intercept}
}

func (lm *LinearModel) TrainWithPos(keys []common.KeyType, positions []int) {
	lm.reset()
	for i, key := range keys {
		lm.add(float64(key), float64(positions[i]))
	}
	lm.solve()
}

// Fit 使用任意实数目标值训练（RMI 根模型的目标是 pos/n*fanout）
func (lm *LinearModel) Fit(keys []common.KeyType, targets []float64) {
	lm.reset()
	for i, key := range keys {
		lm.add(float64(key), targets[i])
	}
	lm.solve()
}

// Observe 只累加不求解，批量加点后调用 Solve
func (lm *LinearModel) Observe(x, y float64) {
	lm.add(x, y)
}

func (lm *LinearModel) Solve() {
	lm.solve()
}

func (lm *LinearModel) reset() {
	lm.n = 0
	lm.meanX, lm.meanY, lm.cxx, lm.cxy = 0, 0, 0, 0
}

func (lm *LinearModel) add(x, y float64) {
	lm.n += 1
	dx := x - lm.meanX
	lm.meanX += dx / lm.n
	lm.meanY += (y - lm.meanY) / lm.n
	lm.cxx += dx * (x - lm.meanX)
	lm.cxy += dx * (y - lm.meanY)
}

func (lm *LinearModel) solve() {
	if lm.n == 0 {
		lm.Slope, lm.Intercept = 0, 0
		return
	}
	if lm.cxx <= 1e-10 {
		// 所有 x 相同：退化为常数模型
		lm.Slope = 0
		lm.Intercept = lm.meanY
		return
	}
	lm.Slope = lm.cxy / lm.cxx
	lm.Intercept = lm.meanY - lm.Slope*lm.meanX
}

func (lm *LinearModel) Predict(key common.KeyType) float64 {
	return lm.Slope*float64(key) + lm.Intercept
}

// PredictXY 对实数 x 求值
func (lm *LinearModel) PredictXY(x float64) float64 {
	return lm.Slope*x + lm.Intercept
}

// PredictPos 返回四舍五入后的整数位置，结果被裁剪到 int 可表示范围
func (lm *LinearModel) PredictPos(key common.KeyType) int {
	return common.ClampToInt(math.Round(lm.Predict(key)), math.MinInt32, math.MaxInt32)
}

// SizeInBytes 只统计推理需要的参数
func (lm *LinearModel) SizeInBytes() int {
	return int(unsafe.Sizeof(lm.Slope) + unsafe.Sizeof(lm.Intercept))
}
