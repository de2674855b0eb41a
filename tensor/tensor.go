// Package tensor adapts the read-only array facade's flat byte results
// into github.com/gomlx/gomlx tensors, generalizing the teacher's
// Dataset.NextBatch dtype switch (zarr/dataset.go) from a fixed
// batch-over-dim-0 reader into a thin conversion layer over any
// zarr.Array retrieval.
package tensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/subset"
	"github.com/tuskan/zarr-core/zarr"
)

// RetrieveArraySubset decodes r from a and returns it as a gomlx Tensor
// shaped like r, converting the pipeline's native-endian byte result into
// a's declared data type.
func RetrieveArraySubset(ctx context.Context, a *zarr.Array, r subset.ArraySubset) (*tensors.Tensor, error) {
	raw, err := a.RetrieveArraySubset(ctx, r)
	if err != nil {
		return nil, err
	}
	return toTensor(raw, a.DataType(), intShape(r.Shape()))
}

// RetrieveChunk decodes chunk coord's whole data from a and returns it as
// a Tensor shaped by the chunk's own (possibly boundary-truncated) extent.
func RetrieveChunk(ctx context.Context, a *zarr.Array, coord []uint64) (*tensors.Tensor, error) {
	raw, err := a.RetrieveChunk(ctx, coord)
	if err != nil {
		return nil, err
	}
	chunkShape, err := a.Metadata().ChunkGrid.ChunkShape(coord, a.Shape())
	if err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	return toTensor(raw, a.DataType(), intShape(chunkShape))
}

// toTensor converts raw, a native-endian byte buffer of the given data
// type, into a flat Go slice of the matching element type and wraps it in
// a Tensor of shape, the same final step as the teacher's NextBatch
// (tensors.FromFlatDataAndDimensions) generalized across every data type
// this core's codec package knows about rather than just the teacher's
// three (<f4, <i4, <i8).
func toTensor(raw []byte, dt codec.DataType, shape []int) (*tensors.Tensor, error) {
	switch dt {
	case codec.Float32:
		return tensors.FromFlatDataAndDimensions(decodeFloat32s(raw), shape...), nil
	case codec.Float64:
		return tensors.FromFlatDataAndDimensions(decodeFloat64s(raw), shape...), nil
	case codec.Int8:
		return tensors.FromFlatDataAndDimensions(decodeInt8s(raw), shape...), nil
	case codec.Int16:
		return tensors.FromFlatDataAndDimensions(decodeInt16s(raw), shape...), nil
	case codec.Int32:
		return tensors.FromFlatDataAndDimensions(decodeInt32s(raw), shape...), nil
	case codec.Int64:
		return tensors.FromFlatDataAndDimensions(decodeInt64s(raw), shape...), nil
	case codec.Uint8, codec.Bool:
		return tensors.FromFlatDataAndDimensions(append([]byte(nil), raw...), shape...), nil
	case codec.Uint16:
		return tensors.FromFlatDataAndDimensions(decodeUint16s(raw), shape...), nil
	case codec.Uint32:
		return tensors.FromFlatDataAndDimensions(decodeUint32s(raw), shape...), nil
	case codec.Uint64:
		return tensors.FromFlatDataAndDimensions(decodeUint64s(raw), shape...), nil
	default:
		return nil, fmt.Errorf("tensor: unsupported data type %s for gomlx conversion", dt)
	}
}

func intShape(shape []uint64) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}

func decodeFloat32s(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func decodeFloat64s(raw []byte) []float64 {
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out
}

func decodeInt8s(raw []byte) []int8 {
	out := make([]int8, len(raw))
	for i, b := range raw {
		out[i] = int8(b)
	}
	return out
}

func decodeInt16s(raw []byte) []int16 {
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return out
}

func decodeInt32s(raw []byte) []int32 {
	out := make([]int32, len(raw)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func decodeInt64s(raw []byte) []int64 {
	out := make([]int64, len(raw)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out
}

func decodeUint16s(raw []byte) []uint16 {
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return out
}

func decodeUint32s(raw []byte) []uint32 {
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out
}

func decodeUint64s(raw []byte) []uint64 {
	out := make([]uint64, len(raw)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return out
}
