// Package learned 实现两层递归模型索引（RMI）。
//
// 根模型把 key 路由到 N 个二级线性模型之一，二级模型预测数组位置，
// 真实位置保证落在 [pos+minErr, pos+maxErr] 内，最后只在这个窗口里二分。
package learned

import (
	"io"
	"strconv"

	"indexbench/pkg/common"
	"indexbench/pkg/model"
)

const diagnosticSamples = 5000

type DiagnosticPoint struct {
	Key          common.KeyType
	Leaf         int
	RealPos      int
	PredictedPos int
	Error        int
}

type RMI struct {
	branchFactor int // 0 表示还没有可用模型
	root         model.LinearModel
	leaves       []model.LinearModel
	minErr       []int
	maxErr       []int
	data         []common.KeyType

	trainFactor int
}

// New 创建一个空的 RMI；trainFactor 是 Build 训练时使用的二级模型个数
func New(trainFactor int) *RMI {
	if trainFactor <= 0 {
		trainFactor = 1
	}
	return &RMI{trainFactor: trainFactor}
}

// LoadModel 从外部描述加载模型参数。解析失败时返回包装了
// model.ErrModelParse 的错误，已有的模型状态保持不变。
func (r *RMI) LoadModel(src io.Reader) error {
	params, err := model.ParseRMI(src)
	if err != nil {
		return err
	}
	r.install(params)
	return nil
}

// LoadModelFile 同 LoadModel，文件不存在也视为解析失败
func (r *RMI) LoadModelFile(path string) error {
	params, err := model.ParseRMIFile(path)
	if err != nil {
		return err
	}
	r.install(params)
	return nil
}

func (r *RMI) install(p *model.RMIParams) {
	bf := p.BranchFactor
	if bf > len(p.Stage2) {
		bf = len(p.Stage2)
	}
	leaves := make([]model.LinearModel, bf)
	minErr := make([]int, bf)
	maxErr := make([]int, bf)
	for i := 0; i < bf; i++ {
		s := p.Stage2[i]
		leaves[i] = model.NewLinearModelWith(s.Slope, s.Intercept)
		minErr[i], maxErr[i] = s.MinError, s.MaxError
	}
	r.root = model.NewLinearModelWith(p.Stage1.Slope, p.Stage1.Intercept)
	r.leaves, r.minErr, r.maxErr = leaves, minErr, maxErr
	r.branchFactor = bf
}

// LoadData 保存（拷贝）最终二分使用的有序数组，与模型加载相互独立
func (r *RMI) LoadData(keys []common.KeyType) {
	r.data = append(make([]common.KeyType, 0, len(keys)), keys...)
}

// Build 加载数据并用内置训练器得到模型
func (r *RMI) Build(keys []common.KeyType) {
	r.LoadData(keys)
	r.install(model.TrainRMI(r.data, r.trainFactor))
}

// Params 导出当前模型，便于写回文件
func (r *RMI) Params() *model.RMIParams {
	p := &model.RMIParams{
		BranchFactor: r.branchFactor,
		Stage1:       model.LinearParams{Slope: r.root.Slope, Intercept: r.root.Intercept},
		Stage2:       make([]model.LeafParams, r.branchFactor),
	}
	for i := range p.Stage2 {
		p.Stage2[i] = model.LeafParams{
			Slope:     r.leaves[i].Slope,
			Intercept: r.leaves[i].Intercept,
			MinError:  r.minErr[i],
			MaxError:  r.maxErr[i],
		}
	}
	return p
}

func (r *RMI) BranchFactor() int { return r.branchFactor }

func (r *RMI) Len() int { return len(r.data) }

func (r *RMI) leafFor(key common.KeyType) int {
	return model.Route(&r.root, key, r.branchFactor)
}

// PredictPosition 返回预测窗口 [pos+minErr, pos+maxErr+1)，未裁剪到数组范围。
// 没有模型时 ok 为 false。
func (r *RMI) PredictPosition(key common.KeyType) (common.Bound, bool) {
	if r.branchFactor == 0 {
		return common.Bound{}, false
	}
	idx := r.leafFor(key)
	pos := r.leaves[idx].PredictPos(key)
	return common.Bound{Begin: pos + r.minErr[idx], End: pos + r.maxErr[idx] + 1}, true
}

// Lookup 返回 key 的数组下标或 common.NotFound。没有模型时退化为全数组二分。
func (r *RMI) Lookup(key common.KeyType) int {
	if len(r.data) == 0 {
		return common.NotFound
	}
	b, ok := r.PredictPosition(key)
	if !ok {
		return common.Find(r.data, key)
	}
	return common.FindInWindow(r.data, key, b.Begin, b.End)
}

// RangeQuery 分别预测 lo、hi 的窗口并在各自窗口内求边界，
// 窗口不正确时退回全数组搜索；返回结果的拷贝。
func (r *RMI) RangeQuery(lo, hi common.KeyType) []common.KeyType {
	if lo > hi || len(r.data) == 0 {
		return nil
	}
	n := len(r.data)
	startWin, endWin := common.Bound{End: n}, common.Bound{End: n}
	if b, ok := r.PredictPosition(lo); ok {
		startWin = b
	}
	if b, ok := r.PredictPosition(hi); ok {
		endWin = b
	}
	start := common.LowerBound(r.data, lo, startWin.Begin, startWin.End)
	end := common.UpperBound(r.data, hi, endWin.Begin, endWin.End)
	if start >= end {
		return nil
	}
	return append([]common.KeyType(nil), r.data[start:end]...)
}

// MemoryUsage 模型参数、误差数组与数据数组
func (r *RMI) MemoryUsage() int {
	total := 0
	total += r.root.SizeInBytes()
	for i := range r.leaves {
		total += r.leaves[i].SizeInBytes()
	}
	total += (cap(r.minErr) + cap(r.maxErr)) * (strconv.IntSize / 8)
	total += cap(r.data) * common.KeySize
	return total
}

// ExportDiagnostics 采样导出预测误差，避免数据量过大
func (r *RMI) ExportDiagnostics() []DiagnosticPoint {
	if r.branchFactor == 0 || len(r.data) == 0 {
		return nil
	}
	step := (len(r.data) + diagnosticSamples - 1) / diagnosticSamples

	results := make([]DiagnosticPoint, 0, len(r.data)/step+1)
	for i := 0; i < len(r.data); i += step {
		key := r.data[i]
		leaf := r.leafFor(key)
		pred := r.leaves[leaf].PredictPos(key)
		results = append(results, DiagnosticPoint{
			Key:          key,
			Leaf:         leaf,
			RealPos:      i,
			PredictedPos: pred,
			Error:        i - pred,
		})
	}
	return results
}
