package storage

import (
	"context"
	"sync/atomic"
)

// Transformer lifts a Store into another Store exposing the same
// contract, letting requests be rewritten or observed before reaching
// the wrapped store (spec.md §9 "Storage transformers"). Custom
// transformers must compose associatively.
type Transformer interface {
	Wrap(inner Store) Store
}

// TransformerChain composes a sequence of Transformer in order: the
// first transformer in the chain wraps the base store, the second wraps
// the first, and so on. A zero-length chain is the identity transform,
// the only chain spec.md's core requires to be mandatory.
type TransformerChain []Transformer

// Apply wraps base with every transformer in the chain, in order.
func (c TransformerChain) Apply(base Store) Store {
	s := base
	for _, t := range c {
		s = t.Wrap(s)
	}
	return s
}

// MetricsTransformer is a pass-through transformer that counts bytes and
// request volume flowing through it, grounded on
// original_source/src/storage.rs's PerformanceMetricsStorageTransformer.
// Useful for the CLI's diagnostics (cmd/zarrcat).
type MetricsTransformer struct {
	bytesRead    int64
	bytesWritten int64
	reads        int64
	writes       int64
}

// NewMetricsTransformer returns a fresh, zeroed metrics transformer.
func NewMetricsTransformer() *MetricsTransformer {
	return &MetricsTransformer{}
}

func (m *MetricsTransformer) Wrap(inner Store) Store {
	return &metricsStore{inner: inner, m: m}
}

func (m *MetricsTransformer) BytesRead() int64    { return atomic.LoadInt64(&m.bytesRead) }
func (m *MetricsTransformer) BytesWritten() int64 { return atomic.LoadInt64(&m.bytesWritten) }
func (m *MetricsTransformer) Reads() int64        { return atomic.LoadInt64(&m.reads) }
func (m *MetricsTransformer) Writes() int64       { return atomic.LoadInt64(&m.writes) }

type metricsStore struct {
	inner Store
	m     *MetricsTransformer
}

func (s *metricsStore) Get(ctx context.Context, key Key) ([]byte, error) {
	atomic.AddInt64(&s.m.reads, 1)
	v, err := s.inner.Get(ctx, key)
	if err == nil {
		atomic.AddInt64(&s.m.bytesRead, int64(len(v)))
	}
	return v, err
}

func (s *metricsStore) GetPartialValues(ctx context.Context, ranges []KeyRange) ([][]byte, error) {
	atomic.AddInt64(&s.m.reads, int64(len(ranges)))
	vs, err := s.inner.GetPartialValues(ctx, ranges)
	if err == nil {
		for _, v := range vs {
			atomic.AddInt64(&s.m.bytesRead, int64(len(v)))
		}
	}
	return vs, err
}

func (s *metricsStore) Size(ctx context.Context, key Key) (uint64, bool, error) {
	return s.inner.Size(ctx, key)
}

func (s *metricsStore) List(ctx context.Context, prefix Prefix) ([]Key, error) {
	return s.inner.List(ctx, prefix)
}

func (s *metricsStore) ListWithDelimiter(ctx context.Context, prefix Prefix) (ListResult, error) {
	return s.inner.ListWithDelimiter(ctx, prefix)
}

func (s *metricsStore) Put(ctx context.Context, key Key, value []byte) error {
	atomic.AddInt64(&s.m.writes, 1)
	err := s.inner.Put(ctx, key, value)
	if err == nil {
		atomic.AddInt64(&s.m.bytesWritten, int64(len(value)))
	}
	return err
}

func (s *metricsStore) Delete(ctx context.Context, key Key) error {
	return s.inner.Delete(ctx, key)
}
