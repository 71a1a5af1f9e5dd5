package btree

import (
	"log"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// MemoryUsage 遍历整棵树，累加每个节点的固定开销以及键、子节点数组的容量。
// 统计只用于诊断：遇到损坏的节点引用时记录日志并返回已累计的部分结果。
func (t *Tree[T]) MemoryUsage() (total int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Memory] btree accounting aborted: %v", r)
		}
	}()

	var zero T
	itemSize := int(unsafe.Sizeof(zero))
	nodeSize := int(unsafe.Sizeof(node[T]{}))
	intSize := int(unsafe.Sizeof(int(0)))

	total = int(unsafe.Sizeof(*t)) + cap(t.free)*intSize
	var walk func(x int)
	walk = func(x int) {
		n := &t.nodes[x]
		total += nodeSize + cap(n.items)*itemSize + cap(n.children)*intSize
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return total
}

// Check 校验结构不变量：节点键数、子节点个数、叶子深度一致、中序有序、元素计数。
func (t *Tree[T]) Check() error {
	leafDepth := -1
	count := 0
	var (
		prev    T
		hasPrev bool
	)

	var visit func(x, depth int, isRoot bool) error
	visit = func(x, depth int, isRoot bool) error {
		if x < 0 || x >= len(t.nodes) {
			return errors.Newf("node index %d out of arena", x)
		}
		n := &t.nodes[x]
		if len(n.items) > t.maxItems() {
			return errors.Newf("node %d has %d items, max %d", x, len(n.items), t.maxItems())
		}
		if !isRoot && len(n.items) < t.minItems() {
			return errors.Newf("node %d has %d items, min %d", x, len(n.items), t.minItems())
		}
		if !n.leaf() && len(n.children) != len(n.items)+1 {
			return errors.Newf("node %d has %d items but %d children", x, len(n.items), len(n.children))
		}
		if n.leaf() {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return errors.Newf("leaf %d at depth %d, expected %d", x, depth, leafDepth)
			}
		}
		for i, item := range n.items {
			if !n.leaf() {
				if err := visit(n.children[i], depth+1, false); err != nil {
					return err
				}
			}
			if hasPrev && t.less(item, prev) {
				return errors.Newf("node %d: items out of order", x)
			}
			prev, hasPrev = item, true
			count++
		}
		if !n.leaf() {
			return visit(n.children[len(n.children)-1], depth+1, false)
		}
		return nil
	}

	if err := visit(t.root, 0, true); err != nil {
		return err
	}
	if count != t.length {
		return errors.Newf("counted %d items, length is %d", count, t.length)
	}
	return nil
}
