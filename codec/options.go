package codec

// ConcurrencyRange is a codec's self-declared internal parallelism window.
type ConcurrencyRange struct {
	Min int
	Max int
}

// RecommendedConcurrency builds a ConcurrencyRange, clamping Min to at
// least 1 and Max to at least Min.
func RecommendedConcurrency(min, max int) ConcurrencyRange {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return ConcurrencyRange{Min: min, Max: max}
}

// FixedConcurrency is shorthand for a codec that always uses exactly n
// internal threads (or refuses parallelism entirely when n == 1, as
// codec/transpose does).
func FixedConcurrency(n int) ConcurrencyRange {
	return RecommendedConcurrency(n, n)
}

// Options carries the inner concurrency value the splitter (internal/splitter)
// derived for a single chunk decode, plus any future per-call tuning. Codec
// implementations may honour or ignore InnerConcurrency.
type Options struct {
	InnerConcurrency int
}

// DefaultOptions returns Options with a serial inner concurrency.
func DefaultOptions() Options {
	return Options{InnerConcurrency: 1}
}
