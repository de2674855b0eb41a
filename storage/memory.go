package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store backed by a map, guarded by a RWMutex so
// it is safe under the concurrent chunk fan-out described in spec.md §5.
// It has no external dependency and is the default store used by tests.
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[Key][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) GetPartialValues(ctx context.Context, ranges []KeyRange) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, kr := range ranges {
		v, err := m.Get(ctx, kr.Key)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		start, end, err := kr.Range.Resolve(uint64(len(v)))
		if err != nil {
			return nil, Wrap("get_partial_values", string(kr.Key), err)
		}
		out[i] = v[start:end]
	}
	return out, nil
}

func (m *Memory) Size(_ context.Context, key Key) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	return uint64(len(v)), true, nil
}

func (m *Memory) List(_ context.Context, prefix Prefix) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []Key
	for k := range m.data {
		if strings.HasPrefix(string(k), string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (m *Memory) ListWithDelimiter(_ context.Context, prefix Prefix) (ListResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res ListResult
	seen := make(map[string]struct{})
	for k, v := range m.data {
		if !strings.HasPrefix(string(k), string(prefix)) {
			continue
		}
		rest := strings.TrimPrefix(string(k), string(prefix))
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			child := string(prefix) + rest[:idx+1]
			if _, ok := seen[child]; !ok {
				seen[child] = struct{}{}
				res.CommonPrefixes = append(res.CommonPrefixes, Prefix(child))
			}
		} else {
			res.Keys = append(res.Keys, ObjectMeta{Key: k, Size: uint64(len(v))})
		}
	}
	sort.Slice(res.Keys, func(i, j int) bool { return res.Keys[i].Key < res.Keys[j].Key })
	sort.Slice(res.CommonPrefixes, func(i, j int) bool { return res.CommonPrefixes[i] < res.CommonPrefixes[j] })
	return res, nil
}

func (m *Memory) Put(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
