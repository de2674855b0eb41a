package zarr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuskan/zarr-core/storage"
	"github.com/tuskan/zarr-core/subset"
	"github.com/tuskan/zarr-core/zarr"
)

func TestAsyncArrayMatchesSyncSemantics(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 2, 0, "")))
	for i := uint64(0); i < 5; i++ {
		putChunk(t, store, testPath, []uint64{i}, []float64{float64(2 * i), float64(2*i + 1)})
	}

	async, err := zarr.OpenAsync(context.Background(), store, testPath, 3)
	require.NoError(t, err)
	defer async.Close()

	full, err := subset.New([]uint64{0}, []uint64{10})
	require.NoError(t, err)
	got, err := async.RetrieveArraySubset(context.Background(), full)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, decodeFloat64s(t, got))
}

func TestNewAsyncArrayWrapsAlreadyOpenArray(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4})

	async := zarr.NewAsyncArray(a, 2)
	defer async.Close()

	got, err := async.RetrieveChunk(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4}, decodeFloat64s(t, got))
}

func TestAsyncArrayAbsentChunkFillsValue(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	async, err := zarr.OpenAsync(context.Background(), store, testPath, 4)
	require.NoError(t, err)
	defer async.Close()

	got, err := async.RetrieveChunk(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []float64{-1, -1, -1, -1}, decodeFloat64s(t, got))
}
