package bench

import (
	"log"
	"math"
	"slices"

	"indexbench/pkg/common"
	"indexbench/pkg/core/memory"
)

const maxReportedMismatches = 5

// reference 用 google/btree 保存同一份数据，作为校验的依据
type reference struct {
	mt *memory.MemTable
}

func newReference(keys []common.KeyType) *reference {
	mt := memory.NewMemTable(googleOrder)
	for _, k := range keys {
		mt.Put(k)
	}
	return &reference{mt: mt}
}

func report(c Contender, n int, format string, args ...any) {
	if n < maxReportedMismatches {
		log.Printf("[Bench] %s: "+format, append([]any{c.Name()}, args...)...)
	}
}

// verifyReads 校验点查（存在的键和其后继）以及区间查询
func (ref *reference) verifyReads(c Contender, w *workload) int {
	bad := 0
	for _, k := range w.searches {
		keys := []common.KeyType{k}
		if k < math.MaxInt64 {
			keys = append(keys, k+1)
		}
		for _, p := range keys {
			if got, want := c.Lookup(p), ref.mt.Has(p); got != want {
				report(c, bad, "lookup(%d) = %v, want %v", p, got, want)
				bad++
			}
		}
	}
	for _, q := range w.ranges {
		got, want := c.Range(q.Lo, q.Hi), ref.mt.Range(q.Lo, q.Hi)
		if !slices.Equal(got, want) {
			report(c, bad, "range(%d, %d) returned %d keys, want %d", q.Lo, q.Hi, len(got), len(want))
			bad++
		}
	}
	return bad
}

// verifyInserts 新插入的键都必须能查到
func (ref *reference) verifyInserts(c Contender, inserted []common.KeyType) int {
	bad := 0
	for _, k := range inserted {
		if !c.Lookup(k) {
			report(c, bad, "inserted key %d not found", k)
			bad++
		}
	}
	return bad
}

// verifyDeletes 按参考数据中的副本数推算每次删除的返回值和最终可见性
func (ref *reference) verifyDeletes(c Contender, deleted []common.KeyType, removed []bool) int {
	copies := make(map[common.KeyType]int, len(deleted))
	for _, k := range deleted {
		if _, ok := copies[k]; !ok {
			copies[k] = len(ref.mt.Range(k, k))
		}
	}

	bad := 0
	for i, k := range deleted {
		want := copies[k] > 0
		if want {
			copies[k]--
		}
		if removed[i] != want {
			report(c, bad, "delete(%d) = %v, want %v", k, removed[i], want)
			bad++
		}
	}
	for k, left := range copies {
		if got := c.Lookup(k); got != (left > 0) {
			report(c, bad, "lookup(%d) after deletes = %v, want %v", k, got, left > 0)
			bad++
		}
	}
	return bad
}
