package model

import (
	"math"

	"indexbench/pkg/common"
)

// LinearParams 是根模型的参数
type LinearParams struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// LeafParams 是二级模型的参数以及它的误差窗口
type LeafParams struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	MinError  int     `json:"min_error"`
	MaxError  int     `json:"max_error"`
}

// RMIParams 两层递归模型的完整描述
// Layer 1: 根线性模型 -> 选择二级模型编号
// Layer 2: 线性回归 -> 预测位置，并附带 [MinError, MaxError] 误差窗口
type RMIParams struct {
	BranchFactor int          `json:"branch_factor"`
	Stage1       LinearParams `json:"stage1"`
	Stage2       []LeafParams `json:"stage2"`
}

// Route 计算根模型选出的二级模型下标，裁剪到 [0, BranchFactor-1]
func Route(root *LinearModel, key common.KeyType, branchFactor int) int {
	return common.ClampToInt(root.Predict(key), 0, branchFactor-1)
}

// TrainRMI 在已排序的键上训练 RMI。
// 根模型拟合 (key, pos/n*fanout)；每个桶单独做最小二乘；
// 误差窗口按“真实位置 - 四舍五入后的预测位置”统计，保证窗口覆盖所有训练键。
func TrainRMI(keys []common.KeyType, branchFactor int) *RMIParams {
	if branchFactor <= 0 {
		branchFactor = 1
	}
	params := &RMIParams{
		BranchFactor: branchFactor,
		Stage2:       make([]LeafParams, branchFactor),
	}
	if len(keys) == 0 {
		return params
	}

	n := float64(len(keys))
	targets := make([]float64, len(keys))
	for i := range keys {
		targets[i] = float64(i) / n * float64(branchFactor)
	}
	root := NewLinearModel()
	root.Fit(keys, targets)
	params.Stage1 = LinearParams{Slope: root.Slope, Intercept: root.Intercept}

	// 分桶，同时记录每个 key 在全局数组中的位置
	bucketKeys := make([][]common.KeyType, branchFactor)
	bucketPoss := make([][]int, branchFactor)
	for i, key := range keys {
		idx := Route(root, key, branchFactor)
		bucketKeys[idx] = append(bucketKeys[idx], key)
		bucketPoss[idx] = append(bucketPoss[idx], i)
	}

	for b := 0; b < branchFactor; b++ {
		if len(bucketKeys[b]) == 0 {
			continue
		}
		lm := NewLinearModel()
		lm.TrainWithPos(bucketKeys[b], bucketPoss[b])

		minErr, maxErr := math.MaxInt, math.MinInt
		for i, key := range bucketKeys[b] {
			err := bucketPoss[b][i] - lm.PredictPos(key)
			if err < minErr {
				minErr = err
			}
			if err > maxErr {
				maxErr = err
			}
		}
		params.Stage2[b] = LeafParams{
			Slope:     lm.Slope,
			Intercept: lm.Intercept,
			MinError:  minErr,
			MaxError:  maxErr,
		}
	}
	return params
}
