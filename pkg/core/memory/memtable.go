// Package memory 提供一个基于 google/btree 的有序键多重集合，
// 作为基准测试中的参考实现和正确性校验的依据。
package memory

import (
	"sync"

	"github.com/google/btree"

	"indexbench/pkg/common"
)

// Item 按 (Key, Seq) 排序，Seq 让重复键各自成为独立条目
type Item struct {
	Key common.KeyType
	Seq uint64
}

func (i Item) Less(than btree.Item) bool {
	o := than.(Item)
	if i.Key != o.Key {
		return i.Key < o.Key
	}
	return i.Seq < o.Seq
}

// itemSize 是每个条目在树中的近似开销：Item 本身加上接口头
const itemSize = common.KeySize + 8 + 16

type MemTable struct {
	tree *btree.BTree
	lock sync.RWMutex
	seq  uint64
}

func NewMemTable(degree int) *MemTable {
	return &MemTable{
		tree: btree.New(degree),
	}
}

// Put 插入一个键，重复键会被保留
func (mt *MemTable) Put(key common.KeyType) {
	mt.lock.Lock()
	defer mt.lock.Unlock()

	mt.seq++
	mt.tree.ReplaceOrInsert(Item{Key: key, Seq: mt.seq})
}

func (mt *MemTable) Has(key common.KeyType) bool {
	mt.lock.RLock()
	defer mt.lock.RUnlock()
	return mt.first(key) != nil
}

func (mt *MemTable) first(key common.KeyType) btree.Item {
	var found btree.Item
	mt.tree.AscendGreaterOrEqual(Item{Key: key}, func(i btree.Item) bool {
		if i.(Item).Key == key {
			found = i
		}
		return false
	})
	return found
}

// Delete 删除 key 的一个副本
func (mt *MemTable) Delete(key common.KeyType) bool {
	mt.lock.Lock()
	defer mt.lock.Unlock()

	it := mt.first(key)
	if it == nil {
		return false
	}
	mt.tree.Delete(it)
	return true
}

// Range 返回 [lo, hi] 内的全部键（含重复），lo > hi 时为空
func (mt *MemTable) Range(lo, hi common.KeyType) []common.KeyType {
	mt.lock.RLock()
	defer mt.lock.RUnlock()

	var out []common.KeyType
	if lo > hi {
		return out
	}
	mt.tree.AscendGreaterOrEqual(Item{Key: lo}, func(i btree.Item) bool {
		item := i.(Item)
		if item.Key > hi {
			return false
		}
		out = append(out, item.Key)
		return true
	})
	return out
}

func (mt *MemTable) Iterator(fn func(key common.KeyType) bool) {
	mt.lock.RLock()
	defer mt.lock.RUnlock()

	mt.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(Item).Key)
	})
}

func (mt *MemTable) Count() int {
	mt.lock.RLock()
	defer mt.lock.RUnlock()
	return mt.tree.Len()
}

// Size 近似内存占用（字节），不含 google/btree 的节点开销
func (mt *MemTable) Size() int {
	mt.lock.RLock()
	defer mt.lock.RUnlock()
	return mt.tree.Len() * itemSize
}
