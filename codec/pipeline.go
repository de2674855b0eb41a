package codec

import (
	"context"
	"fmt"

	"github.com/tuskan/zarr-core/storage"
)

// ArrayToArrayCodec is a bijection on chunk byte buffers under a known
// shape/type: it may permute dimensions or otherwise reshape the array
// interpretation without changing element identity (e.g. transpose).
type ArrayToArrayCodec interface {
	Name() string
	Encode(ctx context.Context, decoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	Decode(ctx context.Context, encoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	// ComputeEncodedRepresentation returns the chunk representation seen
	// by the next codec downstream, after this codec's reshaping.
	ComputeEncodedRepresentation(rep ChunkRepresentation) ChunkRepresentation
	RecommendedConcurrency(rep ChunkRepresentation) ConcurrencyRange
}

// ArrayToBytesCodec serialises a logical chunk (shape + type + bytes) into
// an opaque byte blob. Exactly one appears in a valid pipeline.
type ArrayToBytesCodec interface {
	Name() string
	Encode(ctx context.Context, decoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	Decode(ctx context.Context, encoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	RecommendedConcurrency(rep ChunkRepresentation) ConcurrencyRange
	// PartialDecoder builds a decoder able to serve sub-chunk regions
	// directly against input without a full decode, when supported.
	PartialDecoder(ctx context.Context, input ValueReader, rep ChunkRepresentation, opts Options) (ArrayPartialDecoder, error)
}

// BytesToBytesCodec is a bijection on opaque byte blobs: compression or a
// checksum. May append or prepend a fixed-size trailer/header that partial
// decoders must strip.
type BytesToBytesCodec interface {
	Name() string
	Encode(ctx context.Context, encoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	Decode(ctx context.Context, encoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error)
	RecommendedConcurrency(rep ChunkRepresentation) ConcurrencyRange
	// PartialDecoder builds an adapter that rewrites incoming byte ranges
	// to skip this codec's header/trailer before forwarding to input.
	PartialDecoder(ctx context.Context, input ValueReader, rep ChunkRepresentation, opts Options) (ValueReader, error)
	// DecodesAllOnPartial reports whether this codec cannot serve partial
	// byte ranges and must instead be degraded to a full decode + index.
	DecodesAllOnPartial() bool
}

// ValueReader is a lazy byte-range reader: the partial-decoder adapter
// chain's terminal shape, and also the shape each intermediate bytes→bytes
// partial decoder both consumes and produces.
type ValueReader interface {
	Read(ctx context.Context, ranges []storage.ByteRange) ([][]byte, error)
}

// ArrayPartialDecoder decodes requested sub-regions of a single chunk
// (in chunk-local element-subset terms) without a full decode.
type ArrayPartialDecoder interface {
	DecodeSubset(ctx context.Context, subsets []ChunkSubsetRequest) ([][]byte, error)
}

// ChunkSubsetRequest names one sub-region of a chunk's logical array to
// decode, in chunk-local element coordinates. The Subset type lives in
// package subset; it is referenced here only via the opaque accessor
// functions codec.Pipeline needs (Start/Shape), to avoid codec depending
// on subset for anything but geometry description.
type ChunkSubsetRequest struct {
	Start []uint64
	Shape []uint64
}

// Pipeline is an ordered (A→A codecs, A→B codec, B→B codecs) triple: the
// unit of encode/decode/partial-decode spec.md §4.3 describes.
type Pipeline struct {
	ArrayToArray []ArrayToArrayCodec
	ArrayToBytes ArrayToBytesCodec
	BytesToBytes []BytesToBytesCodec
}

// New validates and constructs a Pipeline. Exactly one ArrayToBytesCodec
// is required; this is the pipeline's sole type-level invariant.
func New(aa []ArrayToArrayCodec, ab ArrayToBytesCodec, bb []BytesToBytesCodec) (*Pipeline, error) {
	if ab == nil {
		return nil, wrapErr("pipeline", "new", errMissingArrayToBytes)
	}
	return &Pipeline{ArrayToArray: aa, ArrayToBytes: ab, BytesToBytes: bb}, nil
}

var errMissingArrayToBytes = fmt.Errorf("pipeline requires exactly one array-to-bytes codec")

// Encode runs the full forward pipeline: A→A codecs in order, then the
// A→B codec, then B→B codecs in order.
func (p *Pipeline) Encode(ctx context.Context, decoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error) {
	cur := decoded
	curRep := rep
	for _, c := range p.ArrayToArray {
		next, err := c.Encode(ctx, cur, curRep, opts)
		if err != nil {
			return nil, wrapErr(c.Name(), "encode", err)
		}
		cur = next
		curRep = c.ComputeEncodedRepresentation(curRep)
	}
	bytesVal, err := p.ArrayToBytes.Encode(ctx, cur, curRep, opts)
	if err != nil {
		return nil, wrapErr(p.ArrayToBytes.Name(), "encode", err)
	}
	for _, c := range p.BytesToBytes {
		next, err := c.Encode(ctx, bytesVal, curRep, opts)
		if err != nil {
			return nil, wrapErr(c.Name(), "encode", err)
		}
		bytesVal = next
	}
	return bytesVal, nil
}

// Decode runs the full reverse pipeline: B→B decoders unwrap outermost to
// innermost, then the A→B codec decodes, then A→A codecs are applied in
// reverse. The result's length must equal rep.EncodedSize(); a mismatch is
// a fatal UnexpectedSizeError.
func (p *Pipeline) Decode(ctx context.Context, encoded []byte, rep ChunkRepresentation, opts Options) ([]byte, error) {
	encodedRep := p.encodedRepresentation(rep)

	bytesVal := encoded
	for i := len(p.BytesToBytes) - 1; i >= 0; i-- {
		c := p.BytesToBytes[i]
		next, err := c.Decode(ctx, bytesVal, encodedRep, opts)
		if err != nil {
			return nil, wrapErr(c.Name(), "decode", err)
		}
		bytesVal = next
	}

	decoded, err := p.ArrayToBytes.Decode(ctx, bytesVal, encodedRep, opts)
	if err != nil {
		return nil, wrapErr(p.ArrayToBytes.Name(), "decode", err)
	}

	// Apply A→A codecs in reverse, walking the representation chain back
	// to the original (outermost) shape as we go.
	reps := make([]ChunkRepresentation, len(p.ArrayToArray)+1)
	reps[0] = rep
	for i, c := range p.ArrayToArray {
		reps[i+1] = c.ComputeEncodedRepresentation(reps[i])
	}
	for i := len(p.ArrayToArray) - 1; i >= 0; i-- {
		c := p.ArrayToArray[i]
		next, err := c.Decode(ctx, decoded, reps[i], opts)
		if err != nil {
			return nil, wrapErr(c.Name(), "decode", err)
		}
		decoded = next
	}

	if uint64(len(decoded)) != rep.EncodedSize() {
		return nil, &UnexpectedSizeError{Got: uint64(len(decoded)), Expected: rep.EncodedSize()}
	}
	return decoded, nil
}

// encodedRepresentation returns the chunk representation as seen by the
// array-to-bytes codec, after all array-to-array reshaping.
func (p *Pipeline) encodedRepresentation(rep ChunkRepresentation) ChunkRepresentation {
	cur := rep
	for _, c := range p.ArrayToArray {
		cur = c.ComputeEncodedRepresentation(cur)
	}
	return cur
}

// RecommendedConcurrency intersects every codec's self-declared
// concurrency window into one range for the splitter (internal/splitter)
// to divide: the narrowest window any stage tolerates wins, so a single
// serial codec anywhere in the chain (e.g. transpose) forces the whole
// pipeline's recommendation down to serial.
func (p *Pipeline) RecommendedConcurrency(rep ChunkRepresentation) ConcurrencyRange {
	cur := rep
	result := ConcurrencyRange{Min: 1, Max: 1 << 30}
	for _, c := range p.ArrayToArray {
		result = intersectConcurrency(result, c.RecommendedConcurrency(cur))
		cur = c.ComputeEncodedRepresentation(cur)
	}
	result = intersectConcurrency(result, p.ArrayToBytes.RecommendedConcurrency(cur))
	for _, c := range p.BytesToBytes {
		result = intersectConcurrency(result, c.RecommendedConcurrency(cur))
	}
	return result
}

func intersectConcurrency(a, b ConcurrencyRange) ConcurrencyRange {
	min := a.Min
	if b.Min > min {
		min = b.Min
	}
	max := a.Max
	if b.Max < max {
		max = b.Max
	}
	if max < min {
		max = min
	}
	return ConcurrencyRange{Min: min, Max: max}
}

// PartialDecoder builds a chain of partial-decoder adapters terminating
// at input (a byte-range reader over the store), suitable for decoding
// sub-regions of one chunk without fetching or decoding the whole blob.
//
// B→B codecs wrap input in the same outermost-first order Decode unwraps
// them in, so the last-applied (outermost) codec strips its own
// header/trailer before any codec beneath it sees the bytes; a codec
// reporting DecodesAllOnPartial degrades to a full decode, and the chain
// built from that point on serves ranges by indexing into the fully
// decoded bytes rather than forwarding further. The A→B codec's own
// PartialDecoder then terminates the chain at the array-subset level.
func (p *Pipeline) PartialDecoder(ctx context.Context, input ValueReader, rep ChunkRepresentation, opts Options) (ArrayPartialDecoder, error) {
	encodedRep := p.encodedRepresentation(rep)

	reader := input
	for i := len(p.BytesToBytes) - 1; i >= 0; i-- {
		c := p.BytesToBytes[i]
		if c.DecodesAllOnPartial() {
			reader = &fullDecodeReader{codec: c, inner: reader, rep: encodedRep, opts: opts}
			continue
		}
		next, err := c.PartialDecoder(ctx, reader, encodedRep, opts)
		if err != nil {
			return nil, wrapErr(c.Name(), "partial_decoder", err)
		}
		reader = next
	}

	abDecoder, err := p.ArrayToBytes.PartialDecoder(ctx, reader, encodedRep, opts)
	if err != nil {
		return nil, wrapErr(p.ArrayToBytes.Name(), "partial_decoder", err)
	}
	if len(p.ArrayToArray) == 0 {
		return abDecoder, nil
	}
	return &arrayToArrayPartialDecoder{inner: abDecoder, codecs: p.ArrayToArray, rep: rep}, nil
}
