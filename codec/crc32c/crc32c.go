// Package crc32c implements the bytes→bytes CRC32C checksum codec: it
// appends a 4-byte trailer on encode and verifies/strips it on a full
// decode. Its partial decoder masks the trailer out of FromEnd ranges and
// of FromStart ranges that run to the end, without ever reading the whole
// blob; a FromStart range with an explicit length is forwarded unmasked
// and returns trailer bytes if it reaches them. Grounded
// on crc32c_partial_decoder.rs's FromStart/FromEnd trailer-masking rules.
//
// No third-party package in the retrieved example pack implements the
// Castagnoli CRC-32 polynomial specifically (the teacher's zlib/blosc
// decompressors don't touch checksums at all); the standard library's
// hash/crc32 with crc32.MakeTable(crc32.Castagnoli) is used instead.
package crc32c

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/storage"
)

// checksumSize is the trailer width in bytes.
const checksumSize = 4

var table = crc32.MakeTable(crc32.Castagnoli)

// Codec appends/verifies a little-endian CRC32C trailer.
type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) Name() string { return "crc32c" }

func (c *Codec) Encode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	sum := crc32.Checksum(encoded, table)
	out := make([]byte, len(encoded)+checksumSize)
	copy(out, encoded)
	binary.LittleEndian.PutUint32(out[len(encoded):], sum)
	return out, nil
}

func (c *Codec) Decode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if len(encoded) < checksumSize {
		return nil, fmt.Errorf("crc32c: encoded value shorter than checksum trailer")
	}
	body := encoded[:len(encoded)-checksumSize]
	trailer := encoded[len(encoded)-checksumSize:]
	want := binary.LittleEndian.Uint32(trailer)
	got := crc32.Checksum(body, table)
	if got != want {
		return nil, fmt.Errorf("crc32c: checksum mismatch: got %#x, want %#x", got, want)
	}
	return body, nil
}

func (c *Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.ConcurrencyRange {
	return codec.RecommendedConcurrency(1, 1)
}

// DecodesAllOnPartial is false: the checksum can be masked out of any
// byte range without reading or verifying the whole blob (spec.md §4.4 —
// "the adapter does not verify the checksum on partial reads").
func (c *Codec) DecodesAllOnPartial() bool { return false }

// PartialDecoder forwards every requested range unmodified to input, then
// masks the trailing checksum bytes out of each result: a FromStart range
// with an explicit length is trusted not to touch the trailer; a
// FromStart range to EOF has the trailing checksumSize bytes dropped; a
// FromEnd range overlapping the trailer is truncated to exclude it.
func (c *Codec) PartialDecoder(ctx context.Context, input codec.ValueReader, rep codec.ChunkRepresentation, opts codec.Options) (codec.ValueReader, error) {
	return &partialDecoder{input: input}, nil
}

type partialDecoder struct {
	input codec.ValueReader
}

func (d *partialDecoder) Read(ctx context.Context, ranges []storage.ByteRange) ([][]byte, error) {
	out, err := d.input.Read(ctx, ranges)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, len(out))
	for i, b := range out {
		if b == nil {
			continue
		}
		bs := append([]byte(nil), b...)
		r := ranges[i]
		if r.IsFromEnd() {
			off := r.Offset()
			if off < checksumSize {
				overlap := uint64(checksumSize) - off
				if overlap > uint64(len(bs)) {
					bs = bs[:0]
				} else {
					bs = bs[:uint64(len(bs))-overlap]
				}
			}
		} else if _, hasLen := r.Length(); !hasLen {
			if uint64(len(bs)) >= checksumSize {
				bs = bs[:uint64(len(bs))-checksumSize]
			} else {
				bs = bs[:0]
			}
		}
		result[i] = bs
	}
	return result, nil
}
