package common

import (
	"fmt"
	"unsafe"
)

// KeyType 定义索引键类型，所有结构共用，目前固定为 int64
type KeyType int64

// NotFound 是 Lookup 在键不存在时返回的哨兵下标
const NotFound = -1

// KeySize 是单个键占用的字节数，用于内存统计
const KeySize = int(unsafe.Sizeof(KeyType(0)))

// Bound 是预测得到的搜索窗口，左闭右开 [Begin, End)
type Bound struct {
	Begin int
	End   int
}

// Len 返回窗口大小，倒置窗口视为空
func (b Bound) Len() int {
	if b.End <= b.Begin {
		return 0
	}
	return b.End - b.Begin
}

// Contains 判断下标是否落在窗口内
func (b Bound) Contains(pos int) bool {
	return pos >= b.Begin && pos < b.End
}

// String 方便调试打印
func (b Bound) String() string {
	return fmt.Sprintf("Bound[%d, %d)", b.Begin, b.End)
}

// Clamp 把窗口裁剪到 [0, n]
func (b Bound) Clamp(n int) Bound {
	if b.Begin < 0 {
		b.Begin = 0
	}
	if b.End > n {
		b.End = n
	}
	if b.Begin > n {
		b.Begin = n
	}
	return b
}
