// Package transpose implements the array→array transpose codec: it
// permutes a chunk's dimension order without changing element identity.
// Grounded on the transpose codec's permute/transpose_array design: a
// full re-layout of the element buffer under a fixed axis permutation.
package transpose

import (
	"context"
	"fmt"

	"github.com/tuskan/zarr-core/codec"
)

// Codec permutes chunk dimensions according to Order, a permutation of
// 0..len(Order)-1. Order[i] names which decoded-representation axis
// becomes encoded axis i.
type Codec struct {
	Order []int
}

// New constructs a transpose Codec. order must be a permutation of
// 0..len(order)-1.
func New(order []int) (*Codec, error) {
	if err := validatePermutation(order); err != nil {
		return nil, err
	}
	return &Codec{Order: append([]int(nil), order...)}, nil
}

func validatePermutation(order []int) error {
	seen := make([]bool, len(order))
	for _, o := range order {
		if o < 0 || o >= len(order) || seen[o] {
			return fmt.Errorf("transpose: invalid permutation order %v", order)
		}
		seen[o] = true
	}
	return nil
}

func (c *Codec) Name() string { return "transpose" }

// ComputeEncodedRepresentation permutes the shape according to Order; the
// transpose codec never changes data type or fill value.
func (c *Codec) ComputeEncodedRepresentation(rep codec.ChunkRepresentation) codec.ChunkRepresentation {
	return rep.WithShape(permute(rep.Shape, c.Order))
}

// RecommendedConcurrency is always {1, 1}: the current element-by-element
// re-layout has no internal parallelism to recommend (direct analogue of
// the transpose codec refusing concurrency until it drops its
// array-library dependency for the re-layout).
func (c *Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.ConcurrencyRange {
	return codec.FixedConcurrency(1)
}

func (c *Codec) Encode(ctx context.Context, decoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if uint64(len(decoded)) != rep.EncodedSize() {
		return nil, &codec.UnexpectedSizeError{Got: uint64(len(decoded)), Expected: rep.EncodedSize()}
	}
	return transposeBuffer(decoded, rep.Shape, c.Order, rep.DataType.Size()), nil
}

func (c *Codec) Decode(ctx context.Context, encoded []byte, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	transposedShape := permute(rep.Shape, c.Order)
	expected := product(transposedShape) * uint64(rep.DataType.Size())
	if uint64(len(encoded)) != expected {
		return nil, &codec.UnexpectedSizeError{Got: uint64(len(encoded)), Expected: expected}
	}
	inverse := inversePermutation(c.Order)
	return transposeBuffer(encoded, transposedShape, inverse, rep.DataType.Size()), nil
}

func permute(shape []uint64, order []int) []uint64 {
	out := make([]uint64, len(shape))
	for i, o := range order {
		out[i] = shape[o]
	}
	return out
}

func inversePermutation(order []int) []int {
	inv := make([]int, len(order))
	for i, o := range order {
		inv[o] = i
	}
	return inv
}

func product(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// transposeBuffer re-lays-out src, shaped srcShape in row-major order,
// into a buffer whose axis i is src's axis order[i] — i.e. dst's
// coordinate vector c maps to src's coordinate vector where
// src_coord[order[i]] = c[i].
func transposeBuffer(src []byte, srcShape []uint64, order []int, elemSize int) []byte {
	d := len(srcShape)
	dstShape := permute(srcShape, order)
	srcStrides := rowMajorStrides(srcShape)
	dstStrides := rowMajorStrides(dstShape)

	out := make([]byte, len(src))
	dstCoord := make([]uint64, d)
	srcCoord := make([]uint64, d)

	var iterate func(axis int)
	iterate = func(axis int) {
		if axis == d {
			srcIdx := uint64(0)
			for i := 0; i < d; i++ {
				srcIdx += srcCoord[i] * srcStrides[i]
			}
			dstIdx := uint64(0)
			for i := 0; i < d; i++ {
				dstIdx += dstCoord[i] * dstStrides[i]
			}
			srcOff := srcIdx * uint64(elemSize)
			dstOff := dstIdx * uint64(elemSize)
			copy(out[dstOff:dstOff+uint64(elemSize)], src[srcOff:srcOff+uint64(elemSize)])
			return
		}
		for i := uint64(0); i < dstShape[axis]; i++ {
			dstCoord[axis] = i
			srcCoord[order[axis]] = i
			iterate(axis + 1)
		}
	}
	iterate(0)
	return out
}

func rowMajorStrides(shape []uint64) []uint64 {
	strides := make([]uint64, len(shape))
	stride := uint64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}
