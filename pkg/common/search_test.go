package common

import (
	"math"
	"testing"
)

func TestBoundsWithWrongWindows(t *testing.T) {
	data := []KeyType{1, 3, 3, 3, 7, 9, 9, 12, 20, 25}
	cases := []struct {
		name   string
		key    KeyType
		lo, hi int
		lower  int
		upper  int
	}{
		{"exact window", 3, 1, 4, 1, 4},
		{"window right of answer", 3, 5, 9, 1, 4},
		{"window left of answer", 20, 0, 3, 8, 9},
		{"window cuts duplicate run", 3, 2, 3, 1, 4},
		{"empty window", 9, 4, 4, 5, 7},
		{"inverted window", 9, 8, 2, 5, 7},
		{"window past the end", 25, 12, 40, 9, 10},
		{"negative window", 1, -10, -2, 0, 1},
		{"absent key inside gap", 10, 0, 2, 7, 7},
		{"key below all", -5, 6, 10, 0, 0},
		{"key above all", 100, 0, 3, 10, 10},
	}
	for _, c := range cases {
		if got := LowerBound(data, c.key, c.lo, c.hi); got != c.lower {
			t.Errorf("%s: LowerBound(%d, [%d,%d)) = %d, want %d", c.name, c.key, c.lo, c.hi, got, c.lower)
		}
		if got := UpperBound(data, c.key, c.lo, c.hi); got != c.upper {
			t.Errorf("%s: UpperBound(%d, [%d,%d)) = %d, want %d", c.name, c.key, c.lo, c.hi, got, c.upper)
		}
	}
}

func TestFindInWindowScanAndSearch(t *testing.T) {
	small := make([]KeyType, linearScanThreshold-1)
	large := make([]KeyType, linearScanThreshold*8)
	for i := range small {
		small[i] = KeyType(i * 2)
	}
	for i := range large {
		large[i] = KeyType(i * 2)
	}

	for _, data := range [][]KeyType{small, large} {
		n := len(data)
		for i, k := range data {
			if got := FindInWindow(data, k, 0, n); got != i {
				t.Fatalf("n=%d: FindInWindow(%d) = %d, want %d", n, k, got, i)
			}
			if got := FindInWindow(data, k+1, 0, n); got != NotFound {
				t.Fatalf("n=%d: FindInWindow(%d) found absent key at %d", n, k+1, got)
			}
		}
		// 窗口外不补查
		if got := FindInWindow(data, data[n-1], 0, n-1); got != NotFound {
			t.Errorf("n=%d: key outside window found at %d", n, got)
		}
		if got := FindInWindow(data, data[0], -5, 1); got != 0 {
			t.Errorf("n=%d: clamped window: got %d", n, got)
		}
		if got := FindInWindow(data, data[0], 3, 1); got != NotFound {
			t.Errorf("n=%d: inverted window: got %d", n, got)
		}
	}

	if Find(large, 30) != 15 || Find(large, 31) != NotFound || Find(nil, 1) != NotFound {
		t.Error("Find returned wrong index")
	}
}

func TestClampAndDistance(t *testing.T) {
	if ClampToInt(math.NaN(), 0, 10) != 0 || ClampToInt(1e300, 0, 10) != 10 || ClampToInt(-3, 0, 10) != 0 || ClampToInt(4.7, 0, 10) != 4 {
		t.Error("ClampToInt out of range")
	}
	if d := Distance(math.MaxInt64, math.MinInt64); d != math.MaxUint64 {
		t.Errorf("Distance over full range = %v", d)
	}
	if d := Distance(-3, 5); d != -8 {
		t.Errorf("Distance(-3, 5) = %v", d)
	}
}
