// Package zstdcodec implements the bytes→bytes zstd compressor, grounded
// on the teacher's use of github.com/klauspost/compress/zstd for batch
// decompression in zarr/dataset.go.
package zstdcodec

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/tuskan/zarr-core/codec"
)

// Codec compresses chunk bytes with zstd at a fixed level.
type Codec struct {
	level zstd.EncoderLevel
}

// New returns a zstd Codec at the given compression level (e.g.
// zstd.SpeedDefault).
func New(level zstd.EncoderLevel) *Codec {
	return &Codec{level: level}
}

func (c *Codec) Name() string { return "zstd" }

func (c *Codec) Encode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, fmt.Errorf("zstd: new writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(encoded, nil), nil
}

func (c *Codec) Decode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: new reader: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(encoded, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: decode: %w", err)
	}
	return out, nil
}

func (c *Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.ConcurrencyRange {
	return codec.RecommendedConcurrency(1, 4)
}

func (c *Codec) DecodesAllOnPartial() bool { return true }

// PartialDecoder always degrades to a full decode: zstd frames cannot be
// decoded from an arbitrary byte offset without decompressing from the
// start, so the pipeline's fullDecodeReader handles this codec.
func (c *Codec) PartialDecoder(ctx context.Context, input codec.ValueReader, rep codec.ChunkRepresentation, opts codec.Options) (codec.ValueReader, error) {
	return input, nil
}
