// Package bench 驱动全部被测结构：生成数据、构建、计时各类操作，
// 并把结果行写入注入的 storage.Sink。索引结构本身从不输出结果。
package bench

import (
	"context"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"indexbench/pkg/common"
	"indexbench/pkg/config"
	"indexbench/pkg/datagen"
	"indexbench/pkg/monitor"
	"indexbench/pkg/storage"
	"indexbench/pkg/storage/keyfile"
)

// 结果行中的操作名
const (
	OpBuild  = "build_time"
	OpMemory = "memory"
	OpSearch = "search"
	OpRange  = "range_search"
	OpInsert = "insert"
	OpDelete = "delete"
)

// ErrVerification 在开启校验且发现结果不一致时返回
var ErrVerification = errors.New("bench: results differ from reference")

type Runner struct {
	cfg       *config.Config
	sink      storage.Sink
	stats     *monitor.WorkloadStats
	factories []Factory
}

func NewRunner(cfg *config.Config, sink storage.Sink) *Runner {
	return &Runner{
		cfg:       cfg,
		sink:      sink,
		stats:     monitor.NewWorkloadStats(),
		factories: Factories(cfg),
	}
}

func (r *Runner) Stats() *monitor.WorkloadStats { return r.stats }

// Datasets 按配置生成数据集；设置了键文件时只使用文件中的键
func (r *Runner) Datasets() ([]*Dataset, error) {
	b := r.cfg.Bench
	if b.KeysFile != "" {
		keys, err := keyfile.Load(b.KeysFile)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(b.KeysFile), filepath.Ext(b.KeysFile))
		return []*Dataset{newDataset(name, keys)}, nil
	}

	var out []*Dataset
	gen := datagen.New(b.Seed)
	for _, dist := range b.Distributions {
		for _, n := range b.Sizes {
			keys, err := gen.Keys(dist, n)
			if err != nil {
				return nil, err
			}
			out = append(out, newDataset(dist, keys))
		}
	}
	return out, nil
}

func newDataset(dist string, keys []common.KeyType) *Dataset {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return &Dataset{Distribution: dist, Size: len(sorted), Keys: sorted}
}

// Run 对每个数据集运行全部被测结构
func (r *Runner) Run(ctx context.Context) error {
	datasets, err := r.Datasets()
	if err != nil {
		return err
	}
	var verifyErr error
	for i, ds := range datasets {
		err := r.RunDataset(ctx, ds, r.cfg.Bench.Seed+int64(i)+1)
		if errors.Is(err, ErrVerification) {
			verifyErr = errors.CombineErrors(verifyErr, err)
			continue
		}
		if err != nil {
			return err
		}
	}
	return verifyErr
}

// workload 是同一数据集上所有结构共享的查询负载
type workload struct {
	searches []common.KeyType
	ranges   []datagen.Range
	inserts  []common.KeyType
	deletes  []common.KeyType
}

func (r *Runner) workloadFor(ds *Dataset, seed int64) (*workload, error) {
	b := r.cfg.Bench
	gen := datagen.New(seed)
	w := &workload{searches: gen.SearchKeys(ds.Keys, b.Lookups)}
	if b.ShortRange > 0 {
		w.ranges = gen.ShortRangeQueries(ds.Keys, b.Ranges, b.ShortRange)
	} else {
		w.ranges = gen.RangeQueries(ds.Keys, b.Ranges)
	}

	dist := ds.Distribution
	if !slices.Contains(datagen.Distributions, dist) {
		dist = datagen.Uniform
	}
	fresh, err := gen.Fresh(dist, ds.Keys, b.Inserts)
	if err != nil {
		return nil, err
	}
	w.inserts = fresh
	w.deletes = gen.SearchKeys(ds.Keys, b.Deletes)
	return w, nil
}

// RunDataset 在一个数据集上依次运行每个被测结构
func (r *Runner) RunDataset(ctx context.Context, ds *Dataset, seed int64) error {
	w, err := r.workloadFor(ds, seed)
	if err != nil {
		return err
	}
	log.Printf("[Bench] dataset %s n=%d: %d lookups, %d ranges, %d inserts, %d deletes",
		ds.Distribution, ds.Size, len(w.searches), len(w.ranges), len(w.inserts), len(w.deletes))

	var ref *reference
	if r.cfg.Bench.Verify {
		ref = newReference(ds.Keys)
	}

	var verifyErr error
	for _, f := range r.factories {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := f.New()
		results, err := r.runOne(ctx, c, ds, w, ref)
		if cl, ok := c.(Closer); ok {
			err = errors.CombineErrors(err, cl.Close())
		}
		if werr := r.sink.Write(results); werr != nil {
			return errors.Wrap(werr, "write results")
		}
		if errors.Is(err, ErrVerification) {
			verifyErr = errors.CombineErrors(verifyErr, err)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "%s on %s/%d", c.Name(), ds.Distribution, ds.Size)
		}
	}
	return verifyErr
}

func (r *Runner) runOne(ctx context.Context, c Contender, ds *Dataset, w *workload, ref *reference) ([]storage.Result, error) {
	var results []storage.Result
	emit := func(op string, v float64) {
		results = append(results, storage.Result{
			Index:        c.Name(),
			Distribution: ds.Distribution,
			DataSize:     ds.Size,
			Operation:    op,
			Value:        v,
		})
	}

	start := time.Now()
	if err := c.Build(ds); err != nil {
		return results, err
	}
	emit(OpBuild, float64(time.Since(start).Nanoseconds()))
	emit(OpMemory, float64(c.MemoryUsage()))

	if len(w.searches) > 0 {
		start = time.Now()
		for _, k := range w.searches {
			r.stats.RecordLookup(c.Lookup(k))
		}
		emit(OpSearch, perOp(time.Since(start), len(w.searches)))
	}

	if len(w.ranges) > 0 {
		start = time.Now()
		for _, q := range w.ranges {
			r.stats.RecordRange(len(c.Range(q.Lo, q.Hi)))
		}
		emit(OpRange, perOp(time.Since(start), len(w.ranges)))
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	var mismatches int
	if ref != nil {
		mismatches += ref.verifyReads(c, w)
	}

	if ins, ok := c.(Inserter); ok && len(w.inserts) > 0 {
		start = time.Now()
		for _, k := range w.inserts {
			ins.Insert(k)
			r.stats.RecordInsert()
		}
		emit(OpInsert, perOp(time.Since(start), len(w.inserts)))
		if ref != nil {
			mismatches += ref.verifyInserts(c, w.inserts)
		}
	}

	if del, ok := c.(Deleter); ok && len(w.deletes) > 0 {
		removed := make([]bool, len(w.deletes))
		start = time.Now()
		for i, k := range w.deletes {
			removed[i] = del.Delete(k)
			r.stats.RecordDelete()
		}
		emit(OpDelete, perOp(time.Since(start), len(w.deletes)))
		if ref != nil {
			mismatches += ref.verifyDeletes(c, w.deletes, removed)
		}
	}

	if mismatches > 0 {
		for i := 0; i < mismatches; i++ {
			r.stats.RecordMismatch()
		}
		log.Printf("[Bench] %s on %s/%d: %d mismatches against reference", c.Name(), ds.Distribution, ds.Size, mismatches)
		return results, errors.Wrapf(ErrVerification, "%s: %d mismatches", c.Name(), mismatches)
	}
	return results, nil
}

func perOp(d time.Duration, n int) float64 {
	return float64(d.Nanoseconds()) / float64(n)
}
