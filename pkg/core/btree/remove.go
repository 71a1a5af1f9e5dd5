package btree

import "slices"

// Remove 删除一个与 item 相等的元素，返回是否找到。
// 内部节点的键用前驱（左子树键数 >= m）或后继（右子树键数 >= m）替换，
// 否则合并左右子树再递归删除；子节点下溢时借位或合并，根变空时树高减一。
func (t *Tree[T]) Remove(item T) bool {
	if !t.remove(t.root, item) {
		return false
	}
	t.length--
	if root := &t.nodes[t.root]; len(root.items) == 0 && !root.leaf() {
		old := t.root
		t.root = root.children[0]
		t.release(old)
	}
	return true
}

func (t *Tree[T]) remove(x int, item T) bool {
	n := &t.nodes[x]
	i := t.lowerBound(n.items, item)

	if i < len(n.items) && t.equal(n.items[i], item) {
		if n.leaf() {
			n.items = slices.Delete(n.items, i, i+1)
			return true
		}
		left, right := n.children[i], n.children[i+1]
		switch {
		case len(t.nodes[left].items) >= t.order:
			pred := t.maxOf(left)
			n.items[i] = pred
			t.remove(left, pred)
			t.fix(x, i)
		case len(t.nodes[right].items) >= t.order:
			succ := t.minOf(right)
			n.items[i] = succ
			t.remove(right, succ)
			t.fix(x, i+1)
		default:
			t.merge(x, i)
			t.remove(left, item)
			t.fix(x, i)
		}
		return true
	}

	if n.leaf() {
		return false
	}
	child := n.children[i]
	if !t.remove(child, item) {
		return false
	}
	t.fix(x, i)
	return true
}

func (t *Tree[T]) maxOf(x int) T {
	for !t.nodes[x].leaf() {
		c := t.nodes[x].children
		x = c[len(c)-1]
	}
	items := t.nodes[x].items
	return items[len(items)-1]
}

func (t *Tree[T]) minOf(x int) T {
	for !t.nodes[x].leaf() {
		x = t.nodes[x].children[0]
	}
	return t.nodes[x].items[0]
}

// fix 修复 parent 第 i 个子节点的下溢：优先向左兄弟借，其次向右兄弟借，
// 都不行时与左兄弟合并（没有左兄弟则与右兄弟合并）。
func (t *Tree[T]) fix(parent, i int) {
	p := &t.nodes[parent]
	if i >= len(p.children) {
		return
	}
	if len(t.nodes[p.children[i]].items) >= t.minItems() {
		return
	}
	switch {
	case i > 0 && len(t.nodes[p.children[i-1]].items) >= t.order:
		t.borrowLeft(parent, i)
	case i+1 < len(p.children) && len(t.nodes[p.children[i+1]].items) >= t.order:
		t.borrowRight(parent, i)
	case i > 0:
		t.merge(parent, i-1)
	case i+1 < len(p.children):
		t.merge(parent, i)
	}
}

func (t *Tree[T]) borrowLeft(parent, i int) {
	p := &t.nodes[parent]
	child, left := &t.nodes[p.children[i]], &t.nodes[p.children[i-1]]

	child.items = slices.Insert(child.items, 0, p.items[i-1])
	last := len(left.items) - 1
	p.items[i-1] = left.items[last]
	left.items = slices.Delete(left.items, last, last+1)

	if !left.leaf() {
		lc := len(left.children) - 1
		child.children = slices.Insert(child.children, 0, left.children[lc])
		left.children = left.children[:lc]
	}
}

func (t *Tree[T]) borrowRight(parent, i int) {
	p := &t.nodes[parent]
	child, right := &t.nodes[p.children[i]], &t.nodes[p.children[i+1]]

	child.items = append(child.items, p.items[i])
	p.items[i] = right.items[0]
	right.items = slices.Delete(right.items, 0, 1)

	if !right.leaf() {
		child.children = append(child.children, right.children[0])
		right.children = slices.Delete(right.children, 0, 1)
	}
}

// merge 把 parent 的第 i+1 个子节点与分隔键并入第 i 个子节点
func (t *Tree[T]) merge(parent, i int) {
	p := &t.nodes[parent]
	leftIdx, rightIdx := p.children[i], p.children[i+1]
	left, right := &t.nodes[leftIdx], &t.nodes[rightIdx]

	left.items = append(left.items, p.items[i])
	left.items = append(left.items, right.items...)
	left.children = append(left.children, right.children...)

	p.items = slices.Delete(p.items, i, i+1)
	p.children = slices.Delete(p.children, i+1, i+2)
	t.release(rightIdx)
}
