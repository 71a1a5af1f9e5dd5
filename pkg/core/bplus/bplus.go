// Package bplus 实现叶子串成单链表的 B+ 树，只支持插入、点查和范围查询。
package bplus

import (
	"cmp"
	"log"
	"slices"
	"sort"
	"unsafe"
)

const noLeaf = -1

type node[K cmp.Ordered] struct {
	keys     []K
	children []int
	next     int // 下一个叶子在 arena 中的下标，noLeaf 表示链尾
	leaf     bool
}

// Tree 阶为 m 的 B+ 树。叶子分裂时右叶子的第一个键被复制到父节点，
// 叶子本身保留全部键；叶子链在分裂时同步更新。
type Tree[K cmp.Ordered] struct {
	order  int
	nodes  []node[K]
	root   int
	length int
}

func New[K cmp.Ordered](order int) *Tree[K] {
	if order < 2 {
		order = 2
	}
	t := &Tree[K]{order: order}
	t.root = t.newNode(true)
	return t
}

func (t *Tree[K]) Len() int { return t.length }

func (t *Tree[K]) Order() int { return t.order }

func (t *Tree[K]) maxKeys() int { return 2*t.order - 1 }

func (t *Tree[K]) newNode(leaf bool) int {
	t.nodes = append(t.nodes, node[K]{leaf: leaf, next: noLeaf})
	return len(t.nodes) - 1
}

// Insert 与 B-Tree 相同的预分裂下降；键 >= 分隔键时进入右子树
func (t *Tree[K]) Insert(key K) bool {
	if len(t.nodes[t.root].keys) == t.maxKeys() {
		oldRoot := t.root
		newRoot := t.newNode(false)
		t.nodes[newRoot].children = append(t.nodes[newRoot].children, oldRoot)
		t.root = newRoot
		t.splitChild(newRoot, 0)
	}

	x := t.root
	for {
		n := &t.nodes[x]
		i := upperBound(n.keys, key)
		if n.leaf {
			n.keys = slices.Insert(n.keys, i, key)
			break
		}
		if len(t.nodes[n.children[i]].keys) == t.maxKeys() {
			t.splitChild(x, i)
			n = &t.nodes[x]
			if key >= n.keys[i] {
				i++
			}
		}
		x = n.children[i]
	}
	t.length++
	return true
}

func (t *Tree[K]) splitChild(parent, i int) {
	m := t.order
	childIdx := t.nodes[parent].children[i]
	rightIdx := t.newNode(t.nodes[childIdx].leaf)
	child, right := &t.nodes[childIdx], &t.nodes[rightIdx]

	var sep K
	if child.leaf {
		right.keys = append(make([]K, 0, t.maxKeys()), child.keys[m-1:]...)
		child.keys = child.keys[:m-1]
		sep = right.keys[0]
		right.next = child.next
		child.next = rightIdx
	} else {
		sep = child.keys[m-1]
		right.keys = append(make([]K, 0, t.maxKeys()), child.keys[m:]...)
		right.children = append(make([]int, 0, t.maxKeys()+1), child.children[m:]...)
		child.keys = child.keys[:m-1]
		child.children = child.children[:m]
	}

	p := &t.nodes[parent]
	p.keys = slices.Insert(p.keys, i, sep)
	p.children = slices.Insert(p.children, i+1, rightIdx)
}

// Search 下降到叶子后在叶子内二分
func (t *Tree[K]) Search(key K) bool {
	x := t.root
	for !t.nodes[x].leaf {
		n := &t.nodes[x]
		x = n.children[upperBound(n.keys, key)]
	}
	keys := t.nodes[x].keys
	i := lowerBound(keys, key)
	return i < len(keys) && keys[i] == key
}

// RangeSearch 先从根下降到可能包含 lo 的最左叶子，
// 再沿叶子链向后收集 [lo, hi] 内的键，遇到首键 > hi 的叶子即停止。
func (t *Tree[K]) RangeSearch(lo, hi K) []K {
	var out []K
	if lo > hi {
		return out
	}
	x := t.root
	for !t.nodes[x].leaf {
		n := &t.nodes[x]
		x = n.children[lowerBound(n.keys, lo)]
	}

	i := lowerBound(t.nodes[x].keys, lo)
	for x != noLeaf {
		leaf := &t.nodes[x]
		if len(leaf.keys) > 0 && leaf.keys[0] > hi {
			break
		}
		for ; i < len(leaf.keys); i++ {
			if leaf.keys[i] > hi {
				return out
			}
			out = append(out, leaf.keys[i])
		}
		x, i = leaf.next, 0
	}
	return out
}

// Keys 沿叶子链返回全部键
func (t *Tree[K]) Keys() []K {
	out := make([]K, 0, t.length)
	for x := t.firstLeaf(); x != noLeaf; x = t.nodes[x].next {
		out = append(out, t.nodes[x].keys...)
	}
	return out
}

func (t *Tree[K]) firstLeaf() int {
	x := t.root
	for !t.nodes[x].leaf {
		x = t.nodes[x].children[0]
	}
	return x
}

func (t *Tree[K]) Height() int {
	h := 1
	for x := t.root; !t.nodes[x].leaf; x = t.nodes[x].children[0] {
		h++
	}
	return h
}

// MemoryUsage 递归累加节点开销与数组容量，统计失败时返回部分结果
func (t *Tree[K]) MemoryUsage() (total int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Memory] b+tree accounting aborted: %v", r)
		}
	}()

	var zero K
	keySize := int(unsafe.Sizeof(zero))
	nodeSize := int(unsafe.Sizeof(node[K]{}))
	intSize := int(unsafe.Sizeof(int(0)))

	total = int(unsafe.Sizeof(*t))
	var walk func(x int)
	walk = func(x int) {
		n := &t.nodes[x]
		total += nodeSize + cap(n.keys)*keySize + cap(n.children)*intSize
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return total
}

func lowerBound[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
}

func upperBound[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > key })
}
