// Package rawbytes implements the mandatory array→bytes codec: an
// identity/native-endian serializer. Every valid pipeline has exactly one
// array→bytes codec; this is the only one the core requires to exist.
package rawbytes

import (
	"context"
	"fmt"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/storage"
	"github.com/tuskan/zarr-core/subset"
)

// Codec is the raw-bytes array→bytes codec: its encoded form is simply
// the decoded chunk's native-endian bytes, unchanged.
type Codec struct{}

// New returns a rawbytes Codec.
func New() *Codec { return &Codec{} }

func (c *Codec) Name() string { return "bytes" }

func (c *Codec) Encode(ctx context.Context, decoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if uint64(len(decoded)) != rep.EncodedSize() {
		return nil, fmt.Errorf("rawbytes: encode input length %d does not match expected %d", len(decoded), rep.EncodedSize())
	}
	return decoded, nil
}

func (c *Codec) Decode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if uint64(len(encoded)) != rep.EncodedSize() {
		return nil, &codec.UnexpectedSizeError{Got: uint64(len(encoded)), Expected: rep.EncodedSize()}
	}
	return encoded, nil
}

func (c *Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.ConcurrencyRange {
	return codec.RecommendedConcurrency(1, 1)
}

// PartialDecoder returns a decoder that reads exactly the byte ranges its
// requested element subsets correspond to, straight out of input.
func (c *Codec) PartialDecoder(ctx context.Context, input codec.ValueReader, rep codec.ChunkRepresentation, opts codec.Options) (codec.ArrayPartialDecoder, error) {
	return &partialDecoder{input: input, rep: rep}, nil
}

type partialDecoder struct {
	input codec.ValueReader
	rep   codec.ChunkRepresentation
}

func (d *partialDecoder) DecodeSubset(ctx context.Context, subsets []codec.ChunkSubsetRequest) ([][]byte, error) {
	elemSize := uint64(d.rep.DataType.Size())

	// Requests may each span multiple contiguous runs in the chunk's
	// row-major linearisation; translate every run of every request into
	// one store byte range, then reassemble per-request outputs.
	type span struct{ reqIdx, runIdx int }
	var ranges []storage.ByteRange
	var owners []span

	perReqRuns := make([][]subset.Run, len(subsets))
	for i, req := range subsets {
		s, err := subset.New(req.Start, req.Shape)
		if err != nil {
			return nil, err
		}
		runs, err := s.ContiguousRuns(d.rep.Shape)
		if err != nil {
			return nil, err
		}
		perReqRuns[i] = runs
		for j, run := range runs {
			ranges = append(ranges, storage.ByteRangeFromStart(run.Offset*elemSize, int64(run.Length*elemSize)))
			owners = append(owners, span{reqIdx: i, runIdx: j})
		}
	}

	values, err := d.input.Read(ctx, ranges)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(subsets))
	for i, req := range subsets {
		out[i] = make([]byte, uint64(codecNumElements(req.Shape))*elemSize)
	}
	offsets := make([]uint64, len(subsets))
	for k, own := range owners {
		run := perReqRuns[own.reqIdx][own.runIdx]
		byteLen := run.Length * elemSize
		copy(out[own.reqIdx][offsets[own.reqIdx]:offsets[own.reqIdx]+byteLen], values[k])
		offsets[own.reqIdx] += byteLen
	}
	return out, nil
}

func codecNumElements(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
