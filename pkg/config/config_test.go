package config

import (
	"os"
	"path/filepath"
	"testing"

	"indexbench/pkg/core/fiting"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/indexbench.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Index.BTreeOrder != 5 {
		t.Errorf("default btree_order: got %d", cfg.Index.BTreeOrder)
	}
	if cfg.Index.RadixBits != 18 {
		t.Errorf("default radix_bits: got %d", cfg.Index.RadixBits)
	}
	if cfg.Index.FitingFlushRatio != 0.1 {
		t.Errorf("default fiting_flush_ratio: got %v", cfg.Index.FitingFlushRatio)
	}
	if len(cfg.Bench.Distributions) != 4 {
		t.Errorf("default distributions: got %v", cfg.Bench.Distributions)
	}
	if got, want := Default().Index.FitingPolicy(), fiting.DefaultPolicy(); got != want {
		t.Errorf("default fiting policy: got %+v, want %+v", got, want)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
bench:
  sizes: [1000, 5000]
  distributions: [zipf]
  lookups: 200
  seed: 7
  verify: true
index:
  btree_order: 8
  fiting_epsilon: 64
  fiting_rebuild_factor: 0.5
  radix_bits: 12
output:
  csv_path: "out.csv"
  sqlite_path: "out.db"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Bench.Sizes) != 2 || cfg.Bench.Sizes[1] != 5000 {
		t.Errorf("sizes: got %v", cfg.Bench.Sizes)
	}
	if len(cfg.Bench.Distributions) != 1 || cfg.Bench.Distributions[0] != "zipf" {
		t.Errorf("distributions: got %v", cfg.Bench.Distributions)
	}
	if !cfg.Bench.Verify || cfg.Bench.Seed != 7 {
		t.Errorf("verify/seed: got %v/%d", cfg.Bench.Verify, cfg.Bench.Seed)
	}
	if cfg.Index.BTreeOrder != 8 {
		t.Errorf("btree_order: got %d", cfg.Index.BTreeOrder)
	}
	if cfg.Index.BPlusOrder != 5 {
		t.Errorf("bplus_order should keep default, got %d", cfg.Index.BPlusOrder)
	}
	if cfg.Index.FitingRebuildFactor != 2.0 {
		t.Errorf("invalid rebuild factor should fall back to 2.0, got %v", cfg.Index.FitingRebuildFactor)
	}
	if cfg.Output.SQLitePath != "out.db" {
		t.Errorf("sqlite_path: got %s", cfg.Output.SQLitePath)
	}

	p := cfg.Index.FitingPolicy()
	if p.Epsilon != 64 || p.DeltaCapacity != 64 || p.MaxSegmentSize != 0 {
		t.Errorf("fiting policy: got %+v", p)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("bench: [unterminated"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadIndexSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel.yaml")
	content := `
bench:
  indexes: [rmi, pebble]
  short_range: -3
output:
  pebble_dir: "lsm"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Bench.Indexes) != 2 || cfg.Bench.Indexes[1] != "pebble" {
		t.Errorf("indexes: got %v", cfg.Bench.Indexes)
	}
	if cfg.Bench.ShortRange != 0 {
		t.Errorf("negative short_range should reset to 0, got %d", cfg.Bench.ShortRange)
	}
	if cfg.Output.PebbleDir != "lsm" {
		t.Errorf("pebble_dir: got %q", cfg.Output.PebbleDir)
	}
}
