package fiting

// Policy 汇总 FITing-Tree 的经验参数
type Policy struct {
	// Epsilon 段内允许的最大预测误差（位置数）
	Epsilon int
	// DeltaCapacity 每个段的缓冲区容量，满了就整体合并重建
	DeltaCapacity int
	// RebuildFactor 段跨度超过创建时跨度的多少倍时全量重建
	RebuildFactor float64
	// FlushRatio 所有缓冲区的键数超过主数组的这个比例时全量合并
	FlushRatio float64
	// IndexOrder 段索引 B-Tree 的阶
	IndexOrder int
	// MaxSegmentSize 单段最多包含的键数，0 表示不限制
	MaxSegmentSize int
}

func DefaultPolicy() Policy {
	return Policy{
		Epsilon:       32,
		DeltaCapacity: 64,
		RebuildFactor: 2.0,
		FlushRatio:    0.1,
		IndexOrder:    5,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Epsilon < 0 {
		p.Epsilon = 0
	}
	if p.DeltaCapacity <= 0 {
		p.DeltaCapacity = d.DeltaCapacity
	}
	if p.RebuildFactor <= 1 {
		p.RebuildFactor = d.RebuildFactor
	}
	if p.FlushRatio <= 0 {
		p.FlushRatio = d.FlushRatio
	}
	if p.IndexOrder < 2 {
		p.IndexOrder = d.IndexOrder
	}
	if p.MaxSegmentSize < 0 {
		p.MaxSegmentSize = 0
	}
	return p
}
