package bplus

import "github.com/cockroachdb/errors"

// Check 校验键数、叶子深度、分隔键与子树的关系以及叶子链的完整性
func (t *Tree[K]) Check() error {
	leafDepth := -1
	var leaves []int

	var visit func(x, depth int, isRoot bool) (K, K, error)
	visit = func(x, depth int, isRoot bool) (lo, hi K, err error) {
		if x < 0 || x >= len(t.nodes) {
			return lo, hi, errors.Newf("node index %d out of arena", x)
		}
		n := &t.nodes[x]
		if len(n.keys) > t.maxKeys() {
			return lo, hi, errors.Newf("node %d has %d keys, max %d", x, len(n.keys), t.maxKeys())
		}
		if !isRoot && len(n.keys) < t.order-1 {
			return lo, hi, errors.Newf("node %d has %d keys, min %d", x, len(n.keys), t.order-1)
		}
		for i := 1; i < len(n.keys); i++ {
			if n.keys[i] < n.keys[i-1] {
				return lo, hi, errors.Newf("node %d: keys out of order", x)
			}
		}
		if n.leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return lo, hi, errors.Newf("leaf %d at depth %d, expected %d", x, depth, leafDepth)
			}
			leaves = append(leaves, x)
			if len(n.keys) > 0 {
				lo, hi = n.keys[0], n.keys[len(n.keys)-1]
			}
			return lo, hi, nil
		}
		if len(n.children) != len(n.keys)+1 {
			return lo, hi, errors.Newf("node %d has %d keys but %d children", x, len(n.keys), len(n.children))
		}
		for i, c := range n.children {
			clo, chi, err := visit(c, depth+1, false)
			if err != nil {
				return lo, hi, err
			}
			if i > 0 && clo < n.keys[i-1] {
				return lo, hi, errors.Newf("node %d: child %d starts below separator", x, i)
			}
			if i < len(n.keys) && chi > n.keys[i] {
				return lo, hi, errors.Newf("node %d: child %d ends above separator", x, i)
			}
			if i == 0 {
				lo = clo
			}
			hi = chi
		}
		return lo, hi, nil
	}

	if _, _, err := visit(t.root, 0, true); err != nil {
		return err
	}

	x := t.firstLeaf()
	count := 0
	for i, leaf := range leaves {
		if x != leaf {
			return errors.Newf("leaf chain broken at position %d", i)
		}
		count += len(t.nodes[x].keys)
		x = t.nodes[x].next
	}
	if x != noLeaf {
		return errors.New("leaf chain continues past the last leaf")
	}
	if count != t.length {
		return errors.Newf("counted %d keys, length is %d", count, t.length)
	}
	return nil
}
