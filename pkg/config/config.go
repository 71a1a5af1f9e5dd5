package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"indexbench/pkg/core/fiting"
	"indexbench/pkg/core/radix"
)

type Config struct {
	Bench  BenchConfig  `yaml:"bench"`
	Index  IndexConfig  `yaml:"index"`
	Output OutputConfig `yaml:"output"`
}

type BenchConfig struct {
	Sizes         []int    `yaml:"sizes"`
	Distributions []string `yaml:"distributions"` // uniform | normal | lognormal | zipf
	Lookups       int      `yaml:"lookups"`
	Ranges        int      `yaml:"ranges"`
	Inserts       int      `yaml:"inserts"`
	Deletes       int      `yaml:"deletes"`
	Seed          int64    `yaml:"seed"`
	Verify        bool     `yaml:"verify"`
	KeysFile      string   `yaml:"keys_file"`   // 外部生成的键文件，设置后忽略 sizes/distributions
	Indexes       []string `yaml:"indexes"`     // btree | bplus | rmi | fiting | radix | google_btree | pebble，为空表示全部
	ShortRange    int      `yaml:"short_range"` // >0 时区间查询改为固定跨度的短区间
}

type IndexConfig struct {
	BTreeOrder          int     `yaml:"btree_order"`
	BPlusOrder          int     `yaml:"bplus_order"`
	FitingEpsilon       int     `yaml:"fiting_epsilon"`
	FitingDeltaCapacity int     `yaml:"fiting_delta_capacity"`
	FitingRebuildFactor float64 `yaml:"fiting_rebuild_factor"`
	FitingFlushRatio    float64 `yaml:"fiting_flush_ratio"`
	FitingIndexOrder    int     `yaml:"fiting_index_order"`
	FitingMaxSegment    int     `yaml:"fiting_max_segment"`
	RadixBits           int     `yaml:"radix_bits"`
	RMIBranchFactor     int     `yaml:"rmi_branch_factor"`
	RMIModelPath        string  `yaml:"rmi_model_path"` // 为空时使用内置训练
}

type OutputConfig struct {
	CSVPath    string `yaml:"csv_path"`
	SQLitePath string `yaml:"sqlite_path"`
	PlotPath   string `yaml:"plot_path"`  // 每个操作一张 PNG，写到这个目录
	PebbleDir  string `yaml:"pebble_dir"` // 非空时加入 pebble LSM 作为对照
	ModelOut   string `yaml:"model_out"`  // 内置训练的 RMI 参数写到这个目录
}

func Default() *Config {
	return &Config{
		Bench: BenchConfig{
			Sizes:         []int{100000, 1000000},
			Distributions: []string{"uniform", "normal", "lognormal", "zipf"},
			Lookups:       100000,
			Ranges:        1000,
			Inserts:       10000,
			Deletes:       10000,
			Seed:          42,
		},
		Index: IndexConfig{
			BTreeOrder:          5,
			BPlusOrder:          5,
			FitingEpsilon:       32,
			FitingDeltaCapacity: 64,
			FitingRebuildFactor: 2.0,
			FitingFlushRatio:    0.1,
			FitingIndexOrder:    5,
			RadixBits:           radix.DefaultBits,
			RMIBranchFactor:     100,
		},
		Output: OutputConfig{
			CSVPath: "benchmark_results.csv",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/indexbench.yaml", "indexbench.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, errors.Wrapf(err, "parse %s", p)
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", configPath)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := Default()
	if len(cfg.Bench.Sizes) == 0 {
		cfg.Bench.Sizes = d.Bench.Sizes
	}
	if len(cfg.Bench.Distributions) == 0 {
		cfg.Bench.Distributions = d.Bench.Distributions
	}
	if cfg.Bench.Lookups < 0 {
		cfg.Bench.Lookups = 0
	}
	if cfg.Bench.Ranges < 0 {
		cfg.Bench.Ranges = 0
	}
	if cfg.Bench.Inserts < 0 {
		cfg.Bench.Inserts = 0
	}
	if cfg.Bench.Deletes < 0 {
		cfg.Bench.Deletes = 0
	}
	if cfg.Bench.ShortRange < 0 {
		cfg.Bench.ShortRange = 0
	}
	if cfg.Index.BTreeOrder < 2 {
		cfg.Index.BTreeOrder = d.Index.BTreeOrder
	}
	if cfg.Index.BPlusOrder < 2 {
		cfg.Index.BPlusOrder = d.Index.BPlusOrder
	}
	if cfg.Index.FitingEpsilon < 0 {
		cfg.Index.FitingEpsilon = d.Index.FitingEpsilon
	}
	if cfg.Index.FitingDeltaCapacity <= 0 {
		cfg.Index.FitingDeltaCapacity = d.Index.FitingDeltaCapacity
	}
	if cfg.Index.FitingRebuildFactor <= 1 {
		cfg.Index.FitingRebuildFactor = d.Index.FitingRebuildFactor
	}
	if cfg.Index.FitingFlushRatio <= 0 || cfg.Index.FitingFlushRatio > 1 {
		cfg.Index.FitingFlushRatio = d.Index.FitingFlushRatio
	}
	if cfg.Index.FitingIndexOrder < 2 {
		cfg.Index.FitingIndexOrder = d.Index.FitingIndexOrder
	}
	if cfg.Index.FitingMaxSegment < 0 {
		cfg.Index.FitingMaxSegment = 0
	}
	if cfg.Index.RadixBits <= 0 {
		cfg.Index.RadixBits = d.Index.RadixBits
	}
	if cfg.Index.RMIBranchFactor <= 0 {
		cfg.Index.RMIBranchFactor = d.Index.RMIBranchFactor
	}
}

// FitingPolicy 把配置转换为 FITing-Tree 的策略参数
func (c *IndexConfig) FitingPolicy() fiting.Policy {
	return fiting.Policy{
		Epsilon:        c.FitingEpsilon,
		DeltaCapacity:  c.FitingDeltaCapacity,
		RebuildFactor:  c.FitingRebuildFactor,
		FlushRatio:     c.FitingFlushRatio,
		IndexOrder:     c.FitingIndexOrder,
		MaxSegmentSize: c.FitingMaxSegment,
	}
}
