package core

import "indexbench/pkg/common"

// TreeIndex 是两种平衡树共同的能力集合：插入、点查、范围查询、内存统计
type TreeIndex interface {
	Insert(key common.KeyType) bool
	Search(key common.KeyType) bool
	RangeSearch(lo, hi common.KeyType) []common.KeyType
	MemoryUsage() int
	Len() int
}

// Remover 只有 B-Tree 支持删除
type Remover interface {
	Remove(key common.KeyType) bool
}

// LearnedIndex 抽象三种学习型结构：查询返回数组下标
type LearnedIndex interface {
	Lookup(key common.KeyType) int
	RangeQuery(lo, hi common.KeyType) []common.KeyType
	MemoryUsage() int
	Len() int
}

// Builder 由有序键数组一次性构建的结构
type Builder interface {
	Build(keys []common.KeyType)
}

// Inserter FITing-Tree 的两种插入路径
type Inserter interface {
	InsertInPlace(key common.KeyType) bool
	InsertDelta(key common.KeyType) bool
}
