package zarr_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klauspost/compress/zstd"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/codec/crc32c"
	"github.com/tuskan/zarr-core/codec/rawbytes"
	"github.com/tuskan/zarr-core/codec/zstdcodec"
	"github.com/tuskan/zarr-core/keyencoding"
	"github.com/tuskan/zarr-core/storage"
	"github.com/tuskan/zarr-core/subset"
	"github.com/tuskan/zarr-core/zarr"
)

const testPath = "arr"

// float64Bytes encodes vs as concatenated native-endian (little-endian)
// float64 elements, the same layout rawbytes.Codec treats as already
// decoded.
func float64Bytes(vs ...float64) []byte {
	out := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func decodeFloat64s(t *testing.T, b []byte) []float64 {
	t.Helper()
	require.Zero(t, len(b)%8)
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

// zarrJSON builds a minimal Zarr V3 array metadata document over a 1-D
// float64 array, shape and chunkShape given in elements, with the named
// codecs appended after the mandatory "bytes" codec.
func zarrJSON(shape, chunkShape uint64, fillValue float64, extraCodecs string) []byte {
	codecs := `{"name":"bytes"}`
	if extraCodecs != "" {
		codecs += "," + extraCodecs
	}
	return []byte(fmt.Sprintf(`{
		"zarr_format": 3,
		"node_type": "array",
		"shape": [%d],
		"data_type": "float64",
		"chunk_grid": {"name": "regular", "configuration": {"chunk_shape": [%d]}},
		"chunk_key_encoding": {"name": "default", "configuration": {"separator": "/"}},
		"fill_value": %v,
		"codecs": [%s],
		"attributes": {}
	}`, shape, chunkShape, fillValue, codecs))
}

// putChunk encodes vs through the same codec stack the array's zarr.json
// names (bytes, plus any bytesToBytes given) and stores the result under
// coord's data key, so Array.Open's independently-parsed pipeline decodes
// back exactly what was written.
func putChunk(t *testing.T, store storage.Store, path string, coord []uint64, vs []float64, bb ...codec.BytesToBytesCodec) {
	t.Helper()
	rep := codec.ChunkRepresentation{Shape: []uint64{uint64(len(vs))}, DataType: codec.Float64}
	pipeline, err := codec.New(nil, rawbytes.New(), bb)
	require.NoError(t, err)
	encoded, err := pipeline.Encode(context.Background(), float64Bytes(vs...), rep, codec.DefaultOptions())
	require.NoError(t, err)
	key := storage.DataKey(path, coord, keyencoding.NewDefault())
	require.NoError(t, store.Put(context.Background(), key, encoded))
}

func mustOpen(t *testing.T, store storage.Store, path string) *zarr.Array {
	t.Helper()
	a, err := zarr.Open(context.Background(), store, path)
	require.NoError(t, err)
	return a
}

func TestOpenMissingMetadata(t *testing.T) {
	store := storage.NewMemory()
	_, err := zarr.Open(context.Background(), store, testPath)
	require.Error(t, err)
	var ce *zarr.ArrayCreateError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, zarr.MissingMetadata, ce.Kind)
}

func TestOpenInvalidMetadata(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), []byte("not json")))
	_, err := zarr.Open(context.Background(), store, testPath)
	require.Error(t, err)
	var ce *zarr.ArrayCreateError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, zarr.InvalidMetadata, ce.Kind)
}

func TestOpenValidMetadata(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)
	require.Equal(t, []uint64{10}, a.Shape())
	require.Equal(t, codec.Float64, a.DataType())
}

func TestExists(t *testing.T) {
	store := storage.NewMemory()
	ok, err := zarr.Exists(context.Background(), store, testPath)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	ok, err = zarr.Exists(context.Background(), store, testPath)
	require.NoError(t, err)
	require.True(t, ok)
}

// Scenario: fill-only read. No chunks have been written; every retrieval
// must return the fill value with no store access beyond existence checks.
func TestRetrieveChunkAbsentFillsValue(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	got, err := a.RetrieveChunk(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []float64{-1, -1, -1, -1}, decodeFloat64s(t, got))
}

func TestRetrieveChunkIfExists(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	_, ok, err := a.RetrieveChunkIfExists(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.False(t, ok)

	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4})
	got, ok, err := a.RetrieveChunkIfExists(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3, 4}, decodeFloat64s(t, got))
}

// Scenario: single-chunk partial read.
func TestRetrieveChunkSubset(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4})

	s, err := subset.New([]uint64{1}, []uint64{2})
	require.NoError(t, err)
	got, err := a.RetrieveChunkSubset(context.Background(), []uint64{0}, s)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3}, decodeFloat64s(t, got))
}

func TestRetrieveChunkSubsetAbsentFillsValue(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	s, err := subset.New([]uint64{1}, []uint64{2})
	require.NoError(t, err)
	got, err := a.RetrieveChunkSubset(context.Background(), []uint64{0}, s)
	require.NoError(t, err)
	require.Equal(t, []float64{-1, -1}, decodeFloat64s(t, got))
}

// Scenario: multi-chunk assembly across an array subset that spans all
// three chunks (sizes 4, 4, 2), with the middle chunk absent (scenario:
// missing middle chunk fills with the array's fill value).
func TestRetrieveArraySubsetAssemblesAcrossChunksWithMissingMiddle(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	putChunk(t, store, testPath, []uint64{0}, []float64{0, 1, 2, 3})
	// chunk 1 intentionally left absent
	putChunk(t, store, testPath, []uint64{2}, []float64{8, 9})

	full, err := subset.New([]uint64{0}, []uint64{10})
	require.NoError(t, err)
	got, err := a.RetrieveArraySubset(context.Background(), full)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3, -1, -1, -1, -1, 8, 9}, decodeFloat64s(t, got))
}

func TestRetrieveChunksEqualsArraySubsetOverChunkGrid(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, 0, "")))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{0, 1, 2, 3})
	putChunk(t, store, testPath, []uint64{1}, []float64{4, 5, 6, 7})

	k, err := subset.New([]uint64{0}, []uint64{2})
	require.NoError(t, err)
	got, err := a.RetrieveChunks(context.Background(), k)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, decodeFloat64s(t, got))
}

// Scenario: checksum trailer is invisible to callers, whether read via a
// full chunk decode or a partial decode that never fetches the trailer
// bytes directly.
func TestCrc32cTrailerInvisible(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, `{"name":"crc32c"}`)))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4}, crc32c.New())

	full, err := a.RetrieveChunk(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4}, decodeFloat64s(t, full))

	s, err := subset.New([]uint64{2}, []uint64{2})
	require.NoError(t, err)
	partial, err := a.RetrieveChunkSubset(context.Background(), []uint64{0}, s)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4}, decodeFloat64s(t, partial))
}

// Scenario: a partial decode against a pipeline with two stacked
// bytes→bytes codecs (stored = crc32c(zstd(ab))) must undo them in the
// same outermost-first order a full decode does — crc32c's trailer
// stripped before zstd ever sees the bytes — or the sub-region read
// returns garbage or an error instead of the same bytes a full decode
// would project.
func TestPartialDecodeWithStackedBytesToBytesCodecs(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, `{"name":"zstd"},{"name":"crc32c"}`)))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4}, zstdcodec.New(zstd.SpeedDefault), crc32c.New())

	full, err := a.RetrieveChunk(context.Background(), []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4}, decodeFloat64s(t, full))

	s, err := subset.New([]uint64{2}, []uint64{2})
	require.NoError(t, err)
	partial, err := a.RetrieveChunkSubset(context.Background(), []uint64{0}, s)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4}, decodeFloat64s(t, partial))
}

// Scenario: concurrent equivalence. A subset spanning many chunks,
// forcing the planner's fan-out fast path, must decode to the same
// bytes as the same region assembled chunk-by-chunk.
func TestRetrieveArraySubsetConcurrentEquivalence(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 2, 0, "")))
	a := mustOpen(t, store, testPath)
	for i := uint64(0); i < 5; i++ {
		putChunk(t, store, testPath, []uint64{i}, []float64{float64(2 * i), float64(2*i + 1)})
	}

	full, err := subset.New([]uint64{0}, []uint64{10})
	require.NoError(t, err)
	got, err := a.RetrieveArraySubset(context.Background(), full)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, decodeFloat64s(t, got))
}

func TestRetrieveChunkIntoArrayView(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4})

	buf := subset.NewAliasedBuffer(4 * 8)
	view, err := subset.NewArrayView(buf, []uint64{4}, subset.NewFull([]uint64{4}), 8)
	require.NoError(t, err)
	require.NoError(t, a.RetrieveChunkIntoArrayView(context.Background(), []uint64{0}, view))
	require.Equal(t, []float64{1, 2, 3, 4}, decodeFloat64s(t, buf.Bytes()))
}

func TestRetrieveArraySubsetIntoArrayViewShapeMismatch(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	buf := subset.NewAliasedBuffer(4 * 8)
	view, err := subset.NewArrayView(buf, []uint64{4}, subset.NewFull([]uint64{4}), 8)
	require.NoError(t, err)

	wrong, err := subset.New([]uint64{0}, []uint64{3})
	require.NoError(t, err)
	err = a.RetrieveArraySubsetIntoArrayView(context.Background(), wrong, view)
	require.Error(t, err)
	var ae *zarr.ArrayError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, zarr.InvalidArraySubset, ae.Kind)
}

func TestRetrieveArraySubsetOutOfBounds(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	oob, err := subset.New([]uint64{8}, []uint64{5})
	require.NoError(t, err)
	_, err = a.RetrieveArraySubset(context.Background(), oob)
	require.Error(t, err)
	var ae *zarr.ArrayError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, zarr.InvalidArraySubset, ae.Kind)
}

func TestRetrieveChunkInvalidCoordinate(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)

	_, err := a.RetrieveChunk(context.Background(), []uint64{99})
	require.Error(t, err)
	var ae *zarr.ArrayError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, zarr.InvalidChunkGridIndices, ae.Kind)
}

func TestPartialDecoder(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), storage.MetaKey(testPath), zarrJSON(10, 4, -1, "")))
	a := mustOpen(t, store, testPath)
	putChunk(t, store, testPath, []uint64{0}, []float64{1, 2, 3, 4})

	dec, err := a.PartialDecoder(context.Background(), []uint64{0})
	require.NoError(t, err)
	out, err := dec.DecodeSubset(context.Background(), []codec.ChunkSubsetRequest{{Start: []uint64{1}, Shape: []uint64{2}}})
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3}, decodeFloat64s(t, out[0]))
}
