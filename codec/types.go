// Package codec implements the three-class chunk codec pipeline: zero or
// more array→array codecs, exactly one array→bytes codec, and zero or more
// bytes→bytes codecs, each with a full and a partial-decode contract.
package codec

import "fmt"

// DataType enumerates the primitive numeric kinds a chunk may hold, each
// with a fixed native-endian element size.
type DataType int

const (
	Bool DataType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

// Size returns the element's byte width.
func (d DataType) Size() int {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		panic(fmt.Sprintf("codec: unknown data type %d", d))
	}
}

func (d DataType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// FillValue is a native-endian byte pattern of exactly DataType.Size()
// bytes, used to populate a chunk's elements when the chunk key is absent
// from the store. NaN payload bits, when present, are carried verbatim
// from the parsed metadata and never canonicalised.
type FillValue []byte

// Repeat returns a slice of n copies of the fill pattern concatenated.
func (f FillValue) Repeat(n uint64) []byte {
	out := make([]byte, uint64(len(f))*n)
	for i := uint64(0); i < n; i++ {
		copy(out[i*uint64(len(f)):(i+1)*uint64(len(f))], f)
	}
	return out
}

// ChunkRepresentation derives the shape, data type and fill value used to
// size decode buffers and compute codec concurrency for one chunk. It is
// transient: built fresh per retrieval, never persisted.
type ChunkRepresentation struct {
	Shape     []uint64
	DataType  DataType
	FillValue FillValue
}

// NumElements returns the element count of the chunk's full shape.
func (c ChunkRepresentation) NumElements() uint64 {
	n := uint64(1)
	for _, d := range c.Shape {
		n *= d
	}
	return n
}

// EncodedSize returns the expected number of bytes a full decode of a
// chunk with this representation must produce.
func (c ChunkRepresentation) EncodedSize() uint64 {
	return c.NumElements() * uint64(c.DataType.Size())
}

// WithShape returns a copy of c with shape replaced; used by A→A codecs
// whose compute_encoded_size reshapes the logical chunk (e.g. transpose).
func (c ChunkRepresentation) WithShape(shape []uint64) ChunkRepresentation {
	c.Shape = append([]uint64(nil), shape...)
	return c
}
