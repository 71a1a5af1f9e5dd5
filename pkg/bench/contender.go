package bench

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"indexbench/pkg/common"
	"indexbench/pkg/config"
	"indexbench/pkg/core"
	"indexbench/pkg/core/bplus"
	"indexbench/pkg/core/btree"
	"indexbench/pkg/core/fiting"
	"indexbench/pkg/core/learned"
	"indexbench/pkg/core/memory"
	"indexbench/pkg/core/radix"
	"indexbench/pkg/model"
)

// 结果行里使用的索引名
const (
	NameBTree   = "B-Tree"
	NameBPlus   = "B+-Tree"
	NameRMI     = "RMI"
	NameFITing  = "FITing-Tree"
	NameRadix   = "RadixSpline"
	NameGoogle  = "google/btree"
	NamePebble  = "Pebble"
	googleOrder = 32
)

// Dataset 是一组已排序的键（可能含重复）及其来源
type Dataset struct {
	Distribution string
	Size         int
	Keys         []common.KeyType
}

// Contender 是驱动程序对一个被测结构的统一视图
type Contender interface {
	Name() string
	Build(ds *Dataset) error
	Lookup(key common.KeyType) bool
	Range(lo, hi common.KeyType) []common.KeyType
	MemoryUsage() int
}

// Inserter / Deleter 是可选能力，驱动程序按需探测
type Inserter interface {
	Insert(key common.KeyType) bool
}

type Deleter interface {
	Delete(key common.KeyType) bool
}

// Closer 用于持有外部资源的对照组（pebble）
type Closer interface {
	Close() error
}

// Factory 为每个数据集创建全新的被测结构
type Factory struct {
	ID  string
	New func() Contender
}

// Factories 按配置列出全部被测结构；pebble 只在设置了目录时加入
func Factories(cfg *config.Config) []Factory {
	idx := cfg.Index
	all := []Factory{
		{"btree", func() Contender {
			t := btree.NewOrdered[common.KeyType](idx.BTreeOrder)
			return &removableTree{treeContender{name: NameBTree, tree: t}, t}
		}},
		{"bplus", func() Contender { return &treeContender{name: NameBPlus, tree: bplus.New[common.KeyType](idx.BPlusOrder)} }},
		{"rmi", func() Contender {
			return &rmiContender{rmi: learned.New(idx.RMIBranchFactor), modelPath: idx.RMIModelPath, modelOut: cfg.Output.ModelOut}
		}},
		{"fiting", func() Contender { return &fitingContender{tree: fiting.New(idx.FitingPolicy())} }},
		{"radix", func() Contender { return &learnedContender{name: NameRadix, idx: radix.New(idx.RadixBits)} }},
		{"google_btree", func() Contender { return &memContender{mt: memory.NewMemTable(googleOrder)} }},
	}
	if cfg.Output.PebbleDir != "" {
		dir := cfg.Output.PebbleDir
		all = append(all, Factory{"pebble", func() Contender { return &pebbleContender{root: dir} }})
	}

	if len(cfg.Bench.Indexes) == 0 {
		return all
	}
	want := make(map[string]bool, len(cfg.Bench.Indexes))
	for _, id := range cfg.Bench.Indexes {
		want[id] = true
	}
	var out []Factory
	for _, f := range all {
		if want[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// treeContender 包装两种平衡树：逐个插入构建
type treeContender struct {
	name string
	tree core.TreeIndex
}

func (c *treeContender) Name() string { return c.name }

func (c *treeContender) Build(ds *Dataset) error {
	for _, k := range ds.Keys {
		c.tree.Insert(k)
	}
	return nil
}

func (c *treeContender) Lookup(key common.KeyType) bool { return c.tree.Search(key) }

func (c *treeContender) Range(lo, hi common.KeyType) []common.KeyType {
	return c.tree.RangeSearch(lo, hi)
}

func (c *treeContender) MemoryUsage() int { return c.tree.MemoryUsage() }

func (c *treeContender) Insert(key common.KeyType) bool { return c.tree.Insert(key) }

// removableTree 只用于 B-Tree，B+-Tree 不支持删除
type removableTree struct {
	treeContender
	remover core.Remover
}

func (c *removableTree) Delete(key common.KeyType) bool { return c.remover.Remove(key) }

// learnedContender 包装只读的学习型结构
type learnedContender struct {
	name string
	idx  interface {
		core.LearnedIndex
		core.Builder
	}
}

func (c *learnedContender) Name() string { return c.name }

func (c *learnedContender) Build(ds *Dataset) error {
	c.idx.Build(ds.Keys)
	return nil
}

func (c *learnedContender) Lookup(key common.KeyType) bool {
	return c.idx.Lookup(key) != common.NotFound
}

func (c *learnedContender) Range(lo, hi common.KeyType) []common.KeyType {
	return c.idx.RangeQuery(lo, hi)
}

func (c *learnedContender) MemoryUsage() int { return c.idx.MemoryUsage() }

// rmiContender 优先加载外部训练的模型，失败时退回内置训练
type rmiContender struct {
	rmi       *learned.RMI
	modelPath string
	modelOut  string
}

func (c *rmiContender) Name() string { return NameRMI }

func (c *rmiContender) Build(ds *Dataset) error {
	if c.modelPath != "" {
		err := c.rmi.LoadModelFile(c.modelPath)
		if err == nil {
			c.rmi.LoadData(ds.Keys)
			return nil
		}
		log.Printf("[RMI] %v, falling back to built-in training", err)
	}
	c.rmi.Build(ds.Keys)

	if c.modelOut == "" {
		return nil
	}
	if err := os.MkdirAll(c.modelOut, 0755); err != nil {
		return err
	}
	path := filepath.Join(c.modelOut, fmt.Sprintf("rmi_%s_%d.json", ds.Distribution, ds.Size))
	return model.WriteRMIFile(path, c.rmi.Params())
}

func (c *rmiContender) Lookup(key common.KeyType) bool {
	return c.rmi.Lookup(key) != common.NotFound
}

func (c *rmiContender) Range(lo, hi common.KeyType) []common.KeyType {
	return c.rmi.RangeQuery(lo, hi)
}

func (c *rmiContender) MemoryUsage() int { return c.rmi.MemoryUsage() }

// fitingContender 插入走 delta buffer，点查也能看到缓冲区中的键
type fitingContender struct {
	tree *fiting.Tree
}

func (c *fitingContender) Name() string { return NameFITing }

func (c *fitingContender) Build(ds *Dataset) error {
	c.tree.Build(ds.Keys)
	return nil
}

func (c *fitingContender) Lookup(key common.KeyType) bool { return c.tree.Contains(key) }

func (c *fitingContender) Range(lo, hi common.KeyType) []common.KeyType {
	return c.tree.RangeQuery(lo, hi)
}

func (c *fitingContender) MemoryUsage() int { return c.tree.MemoryUsage() }

func (c *fitingContender) Insert(key common.KeyType) bool { return c.tree.InsertDelta(key) }

// memContender 是 google/btree 参考实现
type memContender struct {
	mt *memory.MemTable
}

func (c *memContender) Name() string { return NameGoogle }

func (c *memContender) Build(ds *Dataset) error {
	for _, k := range ds.Keys {
		c.mt.Put(k)
	}
	return nil
}

func (c *memContender) Lookup(key common.KeyType) bool { return c.mt.Has(key) }

func (c *memContender) Range(lo, hi common.KeyType) []common.KeyType { return c.mt.Range(lo, hi) }

func (c *memContender) MemoryUsage() int { return c.mt.Size() }

func (c *memContender) Insert(key common.KeyType) bool {
	c.mt.Put(key)
	return true
}

func (c *memContender) Delete(key common.KeyType) bool { return c.mt.Delete(key) }
