package common

import (
	"math"
	"sort"
)

// linearScanThreshold 窗口小于该值时直接顺序扫描
const linearScanThreshold = 16

// FindInWindow 只在窗口 [lo, hi) 内查找 key，返回全局下标或 NotFound。
// 窗口由模型的误差界给出，窗口外不再补查。
func FindInWindow(data []KeyType, key KeyType, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(data) {
		hi = len(data)
	}
	if lo >= hi {
		return NotFound
	}

	if hi-lo < linearScanThreshold {
		for i := lo; i < hi; i++ {
			if data[i] == key {
				return i
			}
			if data[i] > key {
				return NotFound
			}
		}
		return NotFound
	}

	slice := data[lo:hi]
	idx := sort.Search(len(slice), func(i int) bool {
		return slice[i] >= key
	})
	if idx < len(slice) && slice[idx] == key {
		return lo + idx
	}
	return NotFound
}

// Find 在整个数组上二分查找，模型未加载时的退化路径
func Find(data []KeyType, key KeyType) int {
	idx := sort.Search(len(data), func(i int) bool {
		return data[i] >= key
	})
	if idx < len(data) && data[idx] == key {
		return idx
	}
	return NotFound
}

// LowerBound 返回第一个 >= key 的下标。先在窗口 [lo, hi) 内搜索，
// 若结果不满足下界条件（窗口预测错误）则退回全数组搜索。
func LowerBound(data []KeyType, key KeyType, lo, hi int) int {
	n := len(data)
	lo, hi = clampWindow(lo, hi, n)
	if lo < hi {
		p := lo + sort.Search(hi-lo, func(i int) bool {
			return data[lo+i] >= key
		})
		if (p == 0 || data[p-1] < key) && (p == n || data[p] >= key) {
			return p
		}
	}
	return sort.Search(n, func(i int) bool {
		return data[i] >= key
	})
}

// UpperBound 返回第一个 > key 的下标，窗口语义同 LowerBound
func UpperBound(data []KeyType, key KeyType, lo, hi int) int {
	n := len(data)
	lo, hi = clampWindow(lo, hi, n)
	if lo < hi {
		p := lo + sort.Search(hi-lo, func(i int) bool {
			return data[lo+i] > key
		})
		if (p == 0 || data[p-1] <= key) && (p == n || data[p] > key) {
			return p
		}
	}
	return sort.Search(n, func(i int) bool {
		return data[i] > key
	})
}

func clampWindow(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// ClampToInt 把浮点预测值安全地转换为 [lo, hi] 内的整数，NaN 视为 lo。
// Go 中越界的 float->int 转换结果依赖实现，因此先在浮点域裁剪。
func ClampToInt(v float64, lo, hi int) int {
	if math.IsNaN(v) || v <= float64(lo) {
		return lo
	}
	if v >= float64(hi) {
		return hi
	}
	return int(v)
}

// Distance 返回 key-start 的浮点值；int64 相减溢出时借助无符号回绕得到正确差值
func Distance(key, start KeyType) float64 {
	if key >= start {
		return float64(uint64(key) - uint64(start))
	}
	return -float64(uint64(start) - uint64(key))
}
