package monitor

import (
	"sync"
	"testing"
)

func TestWorkloadStatsConcurrent(t *testing.T) {
	ws := NewWorkloadStats()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ws.RecordLookup(i%4 == 0)
				ws.RecordRange(10)
			}
		}()
	}
	wg.Wait()

	if ws.LookupCount != 800 {
		t.Fatalf("lookups: got %d", ws.LookupCount)
	}
	if r := ws.GetHitRatio(); r != 0.25 {
		t.Fatalf("hit ratio: got %v", r)
	}
	if avg := ws.GetAvgRangeSize(); avg != 10 {
		t.Fatalf("avg range: got %v", avg)
	}
}

func TestEmptyStats(t *testing.T) {
	ws := NewWorkloadStats()
	if ws.GetHitRatio() != 0 || ws.GetAvgRangeSize() != 0 || ws.Mismatches() != 0 {
		t.Fatal("expected zero ratios for empty stats")
	}
	ws.RecordMismatch()
	if ws.Mismatches() != 1 {
		t.Fatalf("mismatches: got %d", ws.Mismatches())
	}
}
