package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuskan/zarr-core/storage"
)

func TestMemoryGetAbsent(t *testing.T) {
	m := storage.NewMemory()
	v, err := m.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.Put(ctx, "a/b", []byte("hello")))

	v, err := m.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)

	size, ok, err := m.Size(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), size)
}

func TestMemoryGetPartialValues(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("0123456789")))

	out, err := m.GetPartialValues(ctx, []storage.KeyRange{
		{Key: "k", Range: storage.ByteRangeFromStart(2, 3)},
		{Key: "missing", Range: storage.ByteRangeFromStart(0, 3)},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []byte("234"), out[0])
	assert.Nil(t, out[1])
}

func TestMemoryListAndDelimiter(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.Put(ctx, "arr/zarr.json", []byte("{}")))
	require.NoError(t, m.Put(ctx, "arr/c/0/0", []byte("x")))
	require.NoError(t, m.Put(ctx, "arr/c/0/1", []byte("y")))

	keys, err := m.List(ctx, "arr/")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	lr, err := m.ListWithDelimiter(ctx, "arr/")
	require.NoError(t, err)
	assert.Equal(t, []storage.ObjectMeta{{Key: "arr/zarr.json", Size: 2}}, lr.Keys)
	assert.Equal(t, []storage.Prefix{"arr/c/"}, lr.CommonPrefixes)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("v")))
	require.NoError(t, m.Delete(ctx, "k"))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}
