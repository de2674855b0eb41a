package subset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuskan/zarr-core/subset"
)

func TestNewDimensionalityMismatch(t *testing.T) {
	_, err := subset.New([]uint64{0, 0}, []uint64{1, 1, 1})
	require.Error(t, err)
}

func TestNewFullAndNumElements(t *testing.T) {
	s := subset.NewFull([]uint64{2, 3})
	assert.Equal(t, []uint64{0, 0}, s.Start())
	assert.Equal(t, uint64(6), s.NumElements())
	assert.Equal(t, []uint64{2, 3}, s.End())
}

func TestInBounds(t *testing.T) {
	s, err := subset.New([]uint64{1, 1}, []uint64{2, 2})
	require.NoError(t, err)
	assert.True(t, s.InBounds([]uint64{3, 3}))
	assert.False(t, s.InBounds([]uint64{2, 3}))
}

func TestOverlap(t *testing.T) {
	a, _ := subset.New([]uint64{0, 0}, []uint64{4, 4})
	b, _ := subset.New([]uint64{2, 2}, []uint64{4, 4})
	got, ok := a.Overlap(b)
	require.True(t, ok)
	want, _ := subset.New([]uint64{2, 2}, []uint64{2, 2})
	assert.True(t, got.Equal(want))

	c, _ := subset.New([]uint64{10, 10}, []uint64{2, 2})
	_, ok = a.Overlap(c)
	assert.False(t, ok)
}

func TestRelativeTo(t *testing.T) {
	s, _ := subset.New([]uint64{4, 6}, []uint64{2, 2})
	rel, err := s.RelativeTo([]uint64{4, 4})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, rel.Start())
	assert.Equal(t, []uint64{2, 2}, rel.Shape())

	_, err = s.RelativeTo([]uint64{5, 4})
	assert.Error(t, err)
}

func TestIndices(t *testing.T) {
	s, _ := subset.New([]uint64{0, 0}, []uint64{2, 2})
	idx := s.Indices()
	assert.Equal(t, [][]uint64{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
	}, idx)
}

func TestContiguousRunsFullMatch(t *testing.T) {
	s := subset.NewFull([]uint64{2, 3})
	runs, err := s.ContiguousRuns([]uint64{2, 3})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, subset.Run{Offset: 0, Length: 6}, runs[0])
}

func TestContiguousRunsRowSubset(t *testing.T) {
	// Rows 1..2 out of a 4x3 array are contiguous as one 6-element run.
	s, _ := subset.New([]uint64{1, 0}, []uint64{2, 3})
	runs, err := s.ContiguousRuns([]uint64{4, 3})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, subset.Run{Offset: 3, Length: 6}, runs[0])
}

func TestContiguousRunsColumnSubset(t *testing.T) {
	// A single column out of a 3x4 array: each row is its own 1-element run.
	s, _ := subset.New([]uint64{0, 2}, []uint64{3, 1})
	runs, err := s.ContiguousRuns([]uint64{3, 4})
	require.NoError(t, err)
	require.Equal(t, []subset.Run{
		{Offset: 2, Length: 1},
		{Offset: 6, Length: 1},
		{Offset: 10, Length: 1},
	}, runs)
}

func TestContiguousRunsEmpty(t *testing.T) {
	s, _ := subset.New([]uint64{0, 0}, []uint64{0, 3})
	runs, err := s.ContiguousRuns([]uint64{4, 3})
	require.NoError(t, err)
	assert.Nil(t, runs)
}
