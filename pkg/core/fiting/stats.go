package fiting

import (
	"slices"

	"github.com/cockroachdb/errors"
)

type Stats struct {
	Keys           int
	Segments       int
	Buffered       int
	MaxError       int
	AvgSegmentSize float64
	Rebuilds       int
}

func (t *Tree) Stats() Stats {
	st := Stats{
		Keys:     len(t.data),
		Segments: len(t.segments),
		Buffered: t.buffered,
		Rebuilds: t.rebuilds,
	}
	for i := range t.segments {
		st.MaxError = max(st.MaxError, t.segments[i].MaxError)
	}
	if st.Segments > 0 {
		st.AvgSegmentSize = float64(st.Keys) / float64(st.Segments)
	}
	return st
}

// Check 校验段是否无缝覆盖主数组、段索引是否一致，以及每个键都落在预测窗口内
func (t *Tree) Check() error {
	n := len(t.data)
	if !slices.IsSorted(t.data) {
		return errors.New("main array is not sorted")
	}
	if n == 0 {
		if len(t.segments) != 0 {
			return errors.Newf("empty array with %d segments", len(t.segments))
		}
		return nil
	}
	if t.index.Len() != len(t.segments) {
		return errors.Newf("segment index has %d entries for %d segments", t.index.Len(), len(t.segments))
	}
	if len(t.buffers) != len(t.segments) {
		return errors.Newf("%d buffers for %d segments", len(t.buffers), len(t.segments))
	}

	next := 0
	buffered := 0
	for s := range t.segments {
		seg := &t.segments[s]
		if seg.StartPos != next || seg.EndPos < seg.StartPos {
			return errors.Newf("segment %d covers [%d, %d], expected start %d", s, seg.StartPos, seg.EndPos, next)
		}
		next = seg.EndPos + 1
		for pos := seg.StartPos; pos <= seg.EndPos; pos++ {
			if w := seg.window(t.data[pos], n); !w.Contains(pos) {
				return errors.Newf("segment %d: key %d at %d outside %v", s, t.data[pos], pos, w)
			}
		}

		buf := t.buffers[s]
		if !slices.IsSorted(buf) {
			return errors.Newf("buffer of segment %d is not sorted", s)
		}
		for _, k := range buf {
			if got := t.segmentFor(k); got != s {
				return errors.Newf("buffered key %d in segment %d routes to %d", k, s, got)
			}
		}
		buffered += len(buf)
	}
	if next != n {
		return errors.Newf("segments end at %d, array has %d keys", next, n)
	}
	if buffered != t.buffered {
		return errors.Newf("buffer count %d, recorded %d", buffered, t.buffered)
	}
	return nil
}
