// Package splitter implements the concurrency splitter (spec.md §4.5): a
// pure function dividing a target parallelism budget between outer
// chunk-level fan-out and inner codec-internal threads.
package splitter

import "github.com/tuskan/zarr-core/codec"

// Split divides target total concurrency t across n chunks given a
// codec's recommended concurrency range rec, returning the outer
// fan-out limit and the inner per-chunk concurrency to embed into that
// chunk's codec options.
//
// Policy: outer = clamp(t / max(rec.Min,1), 1, n); inner = clamp(t / outer, rec.Min, rec.Max).
// Codecs that refuse parallelism (rec.Max == 1, e.g. transpose) force
// full outer fan-out; codecs that scale internally concede outer slots
// to keep aggregate threads near t.
func Split(t int, n int, rec codec.ConcurrencyRange) (outer, inner int) {
	if t < 1 {
		t = 1
	}
	min := rec.Min
	if min < 1 {
		min = 1
	}
	max := rec.Max
	if max < min {
		max = min
	}

	outer = clamp(t/min, 1, n)
	inner = clamp(t/outer, min, max)
	return outer, inner
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
