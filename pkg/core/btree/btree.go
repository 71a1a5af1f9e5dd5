// Package btree 实现内存中的经典 B-Tree（键同时存放在内部节点与叶子中）。
//
// 节点存放在树自己持有的 arena 中，子节点引用是 arena 下标，
// 分裂、合并、借位都只是下标和切片的改写，不存在父指针。
package btree

import (
	"cmp"
	"slices"
)

type node[T any] struct {
	items    []T
	children []int
}

func (n *node[T]) leaf() bool { return len(n.children) == 0 }

// Tree 是阶为 m 的 B-Tree：非根节点的键数位于 [m-1, 2m-1]。
// less 必须是严格弱序；相等的元素允许重复存放。
type Tree[T any] struct {
	order  int
	less   func(a, b T) bool
	nodes  []node[T]
	free   []int
	root   int
	length int
}

// New 创建一棵空树，order 小于 2 时按 2 处理
func New[T any](order int, less func(a, b T) bool) *Tree[T] {
	if order < 2 {
		order = 2
	}
	t := &Tree[T]{order: order, less: less}
	t.root = t.alloc()
	return t
}

// NewOrdered 用于可直接比较的类型（整数键等）
func NewOrdered[T cmp.Ordered](order int) *Tree[T] {
	return New(order, cmp.Less[T])
}

func (t *Tree[T]) Order() int { return t.order }

func (t *Tree[T]) Len() int { return t.length }

func (t *Tree[T]) maxItems() int { return 2*t.order - 1 }

func (t *Tree[T]) minItems() int { return t.order - 1 }

func (t *Tree[T]) alloc() int {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.nodes = append(t.nodes, node[T]{})
	return len(t.nodes) - 1
}

func (t *Tree[T]) release(idx int) {
	t.nodes[idx] = node[T]{}
	t.free = append(t.free, idx)
}

// lowerBound 第一个 >= item 的位置
func (t *Tree[T]) lowerBound(items []T, item T) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.less(items[mid], item) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound 第一个 > item 的位置
func (t *Tree[T]) upperBound(items []T, item T) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.less(item, items[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (t *Tree[T]) equal(a, b T) bool {
	return !t.less(a, b) && !t.less(b, a)
}

// Insert 插入元素。根满时先分裂根（树长高一层），
// 下降过程中遇到满的子节点先分裂再进入，保证叶子插入时一定有空位。
// 重复元素不会去重，总是返回 true。
func (t *Tree[T]) Insert(item T) bool {
	if len(t.nodes[t.root].items) == t.maxItems() {
		oldRoot := t.root
		newRoot := t.alloc()
		t.nodes[newRoot].children = append(t.nodes[newRoot].children, oldRoot)
		t.root = newRoot
		t.splitChild(newRoot, 0)
	}
	t.insertNonFull(t.root, item)
	t.length++
	return true
}

func (t *Tree[T]) insertNonFull(x int, item T) {
	for {
		n := &t.nodes[x]
		i := t.upperBound(n.items, item)
		if n.leaf() {
			n.items = slices.Insert(n.items, i, item)
			return
		}
		if len(t.nodes[n.children[i]].items) == t.maxItems() {
			t.splitChild(x, i)
			n = &t.nodes[x]
			if !t.less(item, n.items[i]) {
				i++
			}
		}
		x = n.children[i]
	}
}

// splitChild 把 parent 的第 i 个满子节点一分为二，中位键上移到 parent
func (t *Tree[T]) splitChild(parent, i int) {
	right := t.alloc()
	m := t.order
	child := &t.nodes[t.nodes[parent].children[i]]

	median := child.items[m-1]
	rn := node[T]{items: append(make([]T, 0, t.maxItems()), child.items[m:]...)}
	if !child.leaf() {
		rn.children = append(make([]int, 0, t.maxItems()+1), child.children[m:]...)
		clear(child.children[m:])
		child.children = child.children[:m]
	}
	clear(child.items[m-1:])
	child.items = child.items[:m-1]
	t.nodes[right] = rn

	p := &t.nodes[parent]
	p.items = slices.Insert(p.items, i, median)
	p.children = slices.Insert(p.children, i+1, right)
}

// Search 判断元素是否存在
func (t *Tree[T]) Search(item T) bool {
	_, ok := t.Get(item)
	return ok
}

// Get 返回与 item 相等的元素
func (t *Tree[T]) Get(item T) (T, bool) {
	x := t.root
	for {
		n := &t.nodes[x]
		i := t.lowerBound(n.items, item)
		if i < len(n.items) && !t.less(item, n.items[i]) {
			return n.items[i], true
		}
		if n.leaf() {
			var zero T
			return zero, false
		}
		x = n.children[i]
	}
}

// Floor 返回 <= item 的最大元素
func (t *Tree[T]) Floor(item T) (T, bool) {
	var (
		best  T
		found bool
	)
	x := t.root
	for {
		n := &t.nodes[x]
		i := t.upperBound(n.items, item)
		if i > 0 {
			best, found = n.items[i-1], true
		}
		if n.leaf() {
			return best, found
		}
		x = n.children[i]
	}
}

// Min 最小元素
func (t *Tree[T]) Min() (T, bool) {
	var zero T
	if t.length == 0 {
		return zero, false
	}
	x := t.root
	for !t.nodes[x].leaf() {
		x = t.nodes[x].children[0]
	}
	return t.nodes[x].items[0], true
}

// Max 最大元素
func (t *Tree[T]) Max() (T, bool) {
	var zero T
	if t.length == 0 {
		return zero, false
	}
	x := t.root
	for !t.nodes[x].leaf() {
		c := t.nodes[x].children
		x = c[len(c)-1]
	}
	items := t.nodes[x].items
	return items[len(items)-1], true
}

// RangeSearch 中序遍历 [lo, hi] 内的元素：先进入可能含 lo 的子树，
// 然后交替输出本节点的键和右侧子树，遇到 > hi 的键即停止。
func (t *Tree[T]) RangeSearch(lo, hi T) []T {
	var out []T
	if t.less(hi, lo) {
		return out
	}
	t.rangeFrom(t.root, lo, hi, &out)
	return out
}

func (t *Tree[T]) rangeFrom(x int, lo, hi T, out *[]T) bool {
	n := &t.nodes[x]
	i := t.lowerBound(n.items, lo)
	if !n.leaf() && !t.rangeFrom(n.children[i], lo, hi, out) {
		return false
	}
	for ; i < len(n.items); i++ {
		if t.less(hi, n.items[i]) {
			return false
		}
		*out = append(*out, n.items[i])
		if !n.leaf() && !t.rangeFrom(n.children[i+1], lo, hi, out) {
			return false
		}
	}
	return true
}

// Ascend 按序遍历全部元素，fn 返回 false 时停止
func (t *Tree[T]) Ascend(fn func(item T) bool) {
	t.ascend(t.root, fn)
}

func (t *Tree[T]) ascend(x int, fn func(item T) bool) bool {
	n := &t.nodes[x]
	for i, item := range n.items {
		if !n.leaf() && !t.ascend(n.children[i], fn) {
			return false
		}
		if !fn(item) {
			return false
		}
	}
	if !n.leaf() {
		return t.ascend(n.children[len(n.children)-1], fn)
	}
	return true
}

// Items 返回全部元素的有序拷贝
func (t *Tree[T]) Items() []T {
	out := make([]T, 0, t.length)
	t.Ascend(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Height 返回树高，只有根时为 1
func (t *Tree[T]) Height() int {
	h := 1
	for x := t.root; !t.nodes[x].leaf(); x = t.nodes[x].children[0] {
		h++
	}
	return h
}

// Clear 丢弃所有节点
func (t *Tree[T]) Clear() {
	t.nodes = t.nodes[:0]
	t.free = t.free[:0]
	t.length = 0
	t.root = t.alloc()
}
