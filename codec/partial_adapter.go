package codec

import (
	"context"

	"github.com/tuskan/zarr-core/storage"
	"github.com/tuskan/zarr-core/subset"
)

// StoragePartialDecoder is the terminal ValueReader of a partial-decoder
// chain: a lazy byte-range reader over one store key. It does not verify
// any checksum; whole-blob Decode on the full pipeline is the only path
// that does (spec.md §4.4).
type StoragePartialDecoder struct {
	store storage.Store
	key   storage.Key
}

// NewStoragePartialDecoder wraps store+key as a ValueReader.
func NewStoragePartialDecoder(store storage.Store, key storage.Key) *StoragePartialDecoder {
	return &StoragePartialDecoder{store: store, key: key}
}

func (d *StoragePartialDecoder) Read(ctx context.Context, ranges []storage.ByteRange) ([][]byte, error) {
	keyRanges := make([]storage.KeyRange, len(ranges))
	for i, r := range ranges {
		keyRanges[i] = storage.KeyRange{Key: d.key, Range: r}
	}
	return d.store.GetPartialValues(ctx, keyRanges)
}

// fullDecodeReader degrades a bytes→bytes codec that cannot serve partial
// byte ranges (DecodesAllOnPartial() == true) into a full decode: the
// first Read fetches and decodes the whole blob once and caches it, and
// every range (including this call's) is served by slicing the cached
// decoded bytes.
type fullDecodeReader struct {
	codec BytesToBytesCodec
	inner ValueReader
	rep   ChunkRepresentation
	opts  Options

	decoded []byte
}

func (r *fullDecodeReader) Read(ctx context.Context, ranges []storage.ByteRange) ([][]byte, error) {
	if r.decoded == nil {
		whole, err := r.inner.Read(ctx, []storage.ByteRange{storage.ByteRangeFromStart(0, -1)})
		if err != nil {
			return nil, err
		}
		if len(whole) == 0 || whole[0] == nil {
			return make([][]byte, len(ranges)), nil
		}
		decoded, err := r.codec.Decode(ctx, whole[0], r.rep, r.opts)
		if err != nil {
			return nil, wrapErr(r.codec.Name(), "decode", err)
		}
		r.decoded = decoded
	}
	out := make([][]byte, len(ranges))
	size := uint64(len(r.decoded))
	for i, rg := range ranges {
		start, end, err := rg.Resolve(size)
		if err != nil {
			return nil, err
		}
		out[i] = append([]byte(nil), r.decoded[start:end]...)
	}
	return out, nil
}

// arrayToArrayPartialDecoder degrades partial decode through one or more
// array→array codecs to a full decode of the reshaped chunk followed by
// subset extraction. This is the correct, if not maximally lazy, behavior
// for codecs such as transpose that refuse internal parallelism and whose
// dimension permutation makes a truly lazy partial byte-range projection
// impractical without reimplementing per-codec subset algebra.
type arrayToArrayPartialDecoder struct {
	inner  ArrayPartialDecoder
	codecs []ArrayToArrayCodec
	rep    ChunkRepresentation // original (pre-reshape) chunk representation
}

func (d *arrayToArrayPartialDecoder) DecodeSubset(ctx context.Context, subsets []ChunkSubsetRequest) ([][]byte, error) {
	reps := make([]ChunkRepresentation, len(d.codecs)+1)
	reps[0] = d.rep
	for i, c := range d.codecs {
		reps[i+1] = c.ComputeEncodedRepresentation(reps[i])
	}
	encodedRep := reps[len(d.codecs)]

	full, err := d.inner.DecodeSubset(ctx, []ChunkSubsetRequest{{
		Start: make([]uint64, len(encodedRep.Shape)),
		Shape: encodedRep.Shape,
	}})
	if err != nil {
		return nil, err
	}
	decoded := full[0]
	for i := len(d.codecs) - 1; i >= 0; i-- {
		c := d.codecs[i]
		next, err := c.Decode(ctx, decoded, reps[i], Options{})
		if err != nil {
			return nil, wrapErr(c.Name(), "decode", err)
		}
		decoded = next
	}

	out := make([][]byte, len(subsets))
	for i, req := range subsets {
		s, err := subset.New(req.Start, req.Shape)
		if err != nil {
			return nil, err
		}
		extracted, err := extractSubset(decoded, d.rep.Shape, s, d.rep.DataType.Size())
		if err != nil {
			return nil, err
		}
		out[i] = extracted
	}
	return out, nil
}

// extractSubset pulls the bytes of subset s (a region of a row-major
// buffer shaped containingShape, element size elemSize) out of decoded,
// returning them concatenated in row-major order relative to s.
func extractSubset(decoded []byte, containingShape []uint64, s subset.ArraySubset, elemSize int) ([]byte, error) {
	runs, err := s.ContiguousRuns(containingShape)
	if err != nil {
		return nil, err
	}
	out := make([]byte, s.NumElements()*uint64(elemSize))
	offset := uint64(0)
	for _, run := range runs {
		byteLen := run.Length * uint64(elemSize)
		srcOff := run.Offset * uint64(elemSize)
		copy(out[offset:offset+byteLen], decoded[srcOff:srcOff+byteLen])
		offset += byteLen
	}
	return out, nil
}
