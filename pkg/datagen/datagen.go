// Package datagen 生成基准测试用的键集合与查询负载，给定种子时结果可复现。
package datagen

import (
	"math"
	"math/rand"
	"slices"

	"github.com/cockroachdb/errors"

	"indexbench/pkg/common"
)

const (
	Uniform   = "uniform"
	Normal    = "normal"
	LogNormal = "lognormal"
	Zipf      = "zipf"
)

var Distributions = []string{Uniform, Normal, LogNormal, Zipf}

var ErrUnknownDistribution = errors.New("datagen: unknown distribution")

const (
	normalMean   = 1 << 60
	normalStdDev = 1 << 50
	// lognormal(0, 2) 乘以该系数后仍基本落在 int64 之内
	logNormalScale = 1 << 50
	zipfAlpha      = 1.5
)

// Range 是一个闭区间查询 [Lo, Hi]
type Range struct {
	Lo common.KeyType
	Hi common.KeyType
}

type Generator struct {
	rnd *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Keys 按分布生成 n 个键（未排序，可能有重复）
func (g *Generator) Keys(dist string, n int) ([]common.KeyType, error) {
	if n < 0 {
		n = 0
	}
	keys := make([]common.KeyType, n)
	switch dist {
	case Uniform:
		for i := range keys {
			keys[i] = common.KeyType(g.rnd.Int63())
		}
	case Normal:
		for i := range keys {
			keys[i] = clampKey(g.rnd.NormFloat64()*normalStdDev + normalMean)
		}
	case LogNormal:
		for i := range keys {
			keys[i] = clampKey(math.Exp(g.rnd.NormFloat64()*2) * logNormalScale)
		}
	case Zipf:
		if n == 0 {
			break
		}
		imax := uint64(max(n-1, 1))
		z := rand.NewZipf(g.rnd, zipfAlpha, 1, imax)
		for i := range keys {
			keys[i] = common.KeyType(z.Uint64() + 1)
		}
	default:
		return nil, errors.Wrapf(ErrUnknownDistribution, "%q", dist)
	}
	return keys, nil
}

func clampKey(v float64) common.KeyType {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return common.KeyType(v)
}

// SearchKeys 从数据中均匀抽取 n 个存在的键
func (g *Generator) SearchKeys(data []common.KeyType, n int) []common.KeyType {
	if len(data) == 0 || n <= 0 {
		return nil
	}
	out := make([]common.KeyType, n)
	for i := range out {
		out[i] = data[g.rnd.Intn(len(data))]
	}
	return out
}

// RangeQueries 在有序数据中随机取两个下标，组成 lo <= hi 的区间
func (g *Generator) RangeQueries(sorted []common.KeyType, n int) []Range {
	if len(sorted) == 0 || n <= 0 {
		return nil
	}
	out := make([]Range, n)
	for i := range out {
		a, b := g.rnd.Intn(len(sorted)), g.rnd.Intn(len(sorted))
		if a > b {
			a, b = b, a
		}
		out[i] = Range{Lo: sorted[a], Hi: sorted[b]}
	}
	return out
}

// ShortRangeQueries 区间跨度固定为 width 个位置，更接近 OLTP 的扫描
func (g *Generator) ShortRangeQueries(sorted []common.KeyType, n, width int) []Range {
	if len(sorted) == 0 || n <= 0 {
		return nil
	}
	width = max(width, 1)
	out := make([]Range, n)
	for i := range out {
		a := g.rnd.Intn(len(sorted))
		b := min(a+width-1, len(sorted)-1)
		out[i] = Range{Lo: sorted[a], Hi: sorted[b]}
	}
	return out
}

// Fresh 生成 n 个不在 existing（有序）中且互不相同的新键，用于插入测试
func (g *Generator) Fresh(dist string, existing []common.KeyType, n int) ([]common.KeyType, error) {
	out := make([]common.KeyType, 0, n)
	seen := make(map[common.KeyType]struct{}, n)
	for attempts := 0; len(out) < n && attempts < 64; attempts++ {
		batch, err := g.Keys(dist, n)
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if len(out) == n {
				break
			}
			if _, dup := seen[k]; dup {
				continue
			}
			if _, found := slices.BinarySearch(existing, k); found {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out, nil
}
