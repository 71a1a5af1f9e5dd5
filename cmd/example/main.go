package main

import (
	"fmt"
	"log"
	"strings"

	"indexbench/pkg/common"
	"indexbench/pkg/core/btree"
	"indexbench/pkg/core/fiting"
	"indexbench/pkg/core/learned"
	"indexbench/pkg/core/radix"
)

// 一个很小的演示：每种结构各跑一个典型场景
func main() {
	bt := btree.NewOrdered[common.KeyType](3)
	for _, k := range []common.KeyType{10, 20, 30, 40, 50} {
		bt.Insert(k)
	}
	fmt.Printf("B-Tree:      search(30)=%v range(15,45)=%v height=%d\n",
		bt.Search(30), bt.RangeSearch(15, 45), bt.Height())

	rs := radix.New(radix.DefaultBits)
	rs.Build([]common.KeyType{1, 5, 5, 9, 100})
	fmt.Printf("RadixSpline: lookup(9)=%d lookup(7)=%d\n", rs.Lookup(9), rs.Lookup(7))

	policy := fiting.DefaultPolicy()
	policy.Epsilon = 2
	ft := fiting.New(policy)
	ft.Build([]common.KeyType{0, 1, 2, 3, 100, 101, 102})
	fmt.Printf("FITing-Tree: segments=%d range(0,3)=%v\n", len(ft.Segments()), ft.RangeQuery(0, 3))

	rmi := learned.New(4)
	err := rmi.LoadModel(strings.NewReader("{\n\"branch_factor\": 4,\n\"stage1\": {\"slope\": 0.1, \"intercept\": 0}\n}\n"))
	fmt.Printf("RMI:         load without stage2 -> %v\n", err)
	if err == nil {
		log.Fatal("expected the malformed model to be rejected")
	}
	rmi.LoadData([]common.KeyType{2, 4, 6, 8})
	fmt.Printf("RMI:         branch_factor=%d lookup(6)=%d (binary search fallback)\n", rmi.BranchFactor(), rmi.Lookup(6))
}
