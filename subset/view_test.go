package subset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuskan/zarr-core/subset"
)

func TestAliasedBufferGrantOutOfBounds(t *testing.T) {
	buf := subset.NewAliasedBuffer(8)
	_, err := buf.Grant(4, 8)
	assert.Error(t, err)
}

func TestAliasedBufferDisjointGrants(t *testing.T) {
	buf := subset.NewAliasedBuffer(8)
	a, err := buf.Grant(0, 4)
	require.NoError(t, err)
	b, err := buf.Grant(4, 4)
	require.NoError(t, err)

	copy(a, []byte{1, 2, 3, 4})
	copy(b, []byte{5, 6, 7, 8})

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf.Bytes())
}

func TestNewArrayViewOutOfBounds(t *testing.T) {
	buf := subset.NewAliasedBuffer(16)
	s, _ := subset.New([]uint64{0, 0}, []uint64{4, 4})
	_, err := subset.NewArrayView(buf, []uint64{2, 2}, s, 4)
	assert.Error(t, err)
}

func TestArrayViewWriteContiguousFull(t *testing.T) {
	buf := subset.NewAliasedBuffer(4 * 4) // 2x2 array of 4-byte elements
	s := subset.NewFull([]uint64{2, 2})
	v, err := subset.NewArrayView(buf, []uint64{2, 2}, s, 4)
	require.NoError(t, err)

	decoded := make([]byte, 16)
	for i := range decoded {
		decoded[i] = byte(i)
	}
	require.NoError(t, v.WriteContiguous(decoded))
	assert.Equal(t, decoded, buf.Bytes())
}

func TestArrayViewWriteContiguousWrongLength(t *testing.T) {
	buf := subset.NewAliasedBuffer(16)
	s := subset.NewFull([]uint64{2, 2})
	v, err := subset.NewArrayView(buf, []uint64{2, 2}, s, 4)
	require.NoError(t, err)

	err = v.WriteContiguous(make([]byte, 4))
	assert.Error(t, err)
}

func TestArrayViewFillValue(t *testing.T) {
	buf := subset.NewAliasedBuffer(4 * 4)
	s := subset.NewFull([]uint64{2, 2})
	v, err := subset.NewArrayView(buf, []uint64{2, 2}, s, 4)
	require.NoError(t, err)

	require.NoError(t, v.FillValue([]byte{0xff, 0xff, 0xff, 0xff}))
	want := make([]byte, 16)
	for i := range want {
		want[i] = 0xff
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestArrayViewSubsetViewRelative(t *testing.T) {
	buf := subset.NewAliasedBuffer(4 * 9) // 3x3 array
	outer, _ := subset.New([]uint64{0, 0}, []uint64{3, 3})
	v, err := subset.NewArrayView(buf, []uint64{3, 3}, outer, 4)
	require.NoError(t, err)

	local, _ := subset.New([]uint64{1, 1}, []uint64{2, 2})
	inner, err := v.SubsetView(local)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1}, inner.Subset().Start())
	assert.Equal(t, []uint64{2, 2}, inner.Subset().Shape())
}
