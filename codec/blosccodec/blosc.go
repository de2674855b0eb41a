// Package blosccodec implements the bytes→bytes blosc compressor,
// grounded on the teacher's reader.go blosc branch
// (github.com/mrjoshuak/go-blosc's Decompress call).
package blosccodec

import (
	"fmt"

	"context"

	"github.com/mrjoshuak/go-blosc"

	"github.com/tuskan/zarr-core/codec"
)

// Codec compresses chunk bytes with blosc at a fixed compression level
// and shuffle filter, typed by the chunk's element size.
type Codec struct {
	Level   int
	Shuffle bool
}

// New returns a blosc Codec.
func New(level int, shuffle bool) *Codec {
	return &Codec{Level: level, Shuffle: shuffle}
}

func (c *Codec) Name() string { return "blosc" }

func (c *Codec) Encode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	out, err := blosc.Compress(c.Level, c.Shuffle, rep.DataType.Size(), encoded)
	if err != nil {
		return nil, fmt.Errorf("blosc: compress: %w", err)
	}
	return out, nil
}

func (c *Codec) Decode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	out, err := blosc.Decompress(encoded)
	if err != nil {
		return nil, fmt.Errorf("blosc: decompress: %w", err)
	}
	return out, nil
}

func (c *Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.ConcurrencyRange {
	return codec.RecommendedConcurrency(1, 4)
}

func (c *Codec) DecodesAllOnPartial() bool { return true }

// PartialDecoder always degrades to a full decode: blosc's block
// structure cannot be addressed by an arbitrary byte range without first
// decompressing, so the pipeline's fullDecodeReader handles this codec.
func (c *Codec) PartialDecoder(ctx context.Context, input codec.ValueReader, rep codec.ChunkRepresentation, opts codec.Options) (codec.ValueReader, error) {
	return input, nil
}
