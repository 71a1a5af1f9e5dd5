package monitor

import (
	"fmt"
	"sync/atomic"
)

// WorkloadStats 统计一次基准运行中各类操作的次数
type WorkloadStats struct {
	LookupCount   uint64
	HitCount      uint64
	RangeCount    uint64
	RangeKeys     uint64
	InsertCount   uint64
	DeleteCount   uint64
	MismatchCount uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordLookup(hit bool) {
	atomic.AddUint64(&ws.LookupCount, 1)
	if hit {
		atomic.AddUint64(&ws.HitCount, 1)
	}
}

func (ws *WorkloadStats) RecordRange(keys int) {
	atomic.AddUint64(&ws.RangeCount, 1)
	atomic.AddUint64(&ws.RangeKeys, uint64(keys))
}

func (ws *WorkloadStats) RecordInsert() {
	atomic.AddUint64(&ws.InsertCount, 1)
}

func (ws *WorkloadStats) RecordDelete() {
	atomic.AddUint64(&ws.DeleteCount, 1)
}

// RecordMismatch 记录与参照结构不一致的查询结果
func (ws *WorkloadStats) RecordMismatch() {
	atomic.AddUint64(&ws.MismatchCount, 1)
}

func (ws *WorkloadStats) Mismatches() uint64 {
	return atomic.LoadUint64(&ws.MismatchCount)
}

func (ws *WorkloadStats) GetHitRatio() float64 {
	lookups := atomic.LoadUint64(&ws.LookupCount)
	if lookups == 0 {
		return 0.0
	}
	return float64(atomic.LoadUint64(&ws.HitCount)) / float64(lookups)
}

// GetAvgRangeSize 平均每次范围查询返回的键数
func (ws *WorkloadStats) GetAvgRangeSize() float64 {
	ranges := atomic.LoadUint64(&ws.RangeCount)
	if ranges == 0 {
		return 0.0
	}
	return float64(atomic.LoadUint64(&ws.RangeKeys)) / float64(ranges)
}

func (ws *WorkloadStats) String() string {
	return fmt.Sprintf("lookups=%d hit=%.2f%% ranges=%d avg_range=%.1f inserts=%d deletes=%d mismatches=%d",
		atomic.LoadUint64(&ws.LookupCount), ws.GetHitRatio()*100,
		atomic.LoadUint64(&ws.RangeCount), ws.GetAvgRangeSize(),
		atomic.LoadUint64(&ws.InsertCount), atomic.LoadUint64(&ws.DeleteCount),
		ws.Mismatches())
}
