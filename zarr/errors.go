// Package zarr implements the read-only array facade over a chunked,
// codec-pipelined store: region planning, fill-value filling, partial and
// full chunk decode, and the sync/async scheduling duality described in
// SPEC_FULL.md §5.
package zarr

import (
	"fmt"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/subset"
)

// ArrayCreateError reports why Open failed to bring an Array into
// existence. The array handle never exists on this path.
type ArrayCreateError struct {
	Path string
	Kind ArrayCreateErrorKind
	Err  error
}

// ArrayCreateErrorKind distinguishes why construction failed.
type ArrayCreateErrorKind int

const (
	// MissingMetadata means no zarr.json was found at the node path.
	MissingMetadata ArrayCreateErrorKind = iota
	// InvalidMetadata means zarr.json exists but failed to parse or
	// validate.
	InvalidMetadata
)

func (e *ArrayCreateError) Error() string {
	switch e.Kind {
	case MissingMetadata:
		return fmt.Sprintf("zarr: no metadata found at %q", e.Path)
	default:
		return fmt.Sprintf("zarr: invalid metadata at %q: %v", e.Path, e.Err)
	}
}

func (e *ArrayCreateError) Unwrap() error { return e.Err }

// ArrayError reports a failure from a read operation on an already-open
// Array.
type ArrayError struct {
	Op   string
	Kind ArrayErrorKind
	Err  error
}

// ArrayErrorKind enumerates the error taxonomy of SPEC_FULL.md §2.1 /
// spec.md §4.7, most specific first.
type ArrayErrorKind int

const (
	// InvalidChunkGridIndices means a chunk coordinate's dimensionality or
	// range was invalid.
	InvalidChunkGridIndices ArrayErrorKind = iota
	// InvalidArraySubset means a requested subset's dimensionality or
	// range was invalid.
	InvalidArraySubset
	// UnexpectedChunkDecodedSize means the pipeline's decoded-size
	// invariant (spec.md §4.3) was violated.
	UnexpectedChunkDecodedSize
	// CodecErrorKind wraps a codec-layer failure.
	CodecErrorKind
	// StorageErrorKind wraps a store failure.
	StorageErrorKind
)

func (e *ArrayError) Error() string {
	return fmt.Sprintf("zarr: %s: %v", e.Op, e.Err)
}

func (e *ArrayError) Unwrap() error { return e.Err }

func invalidChunkGridIndices(op string, coords []uint64, err error) *ArrayError {
	return &ArrayError{Op: op, Kind: InvalidChunkGridIndices, Err: fmt.Errorf("invalid chunk grid indices %v: %w", coords, err)}
}

func invalidArraySubset(op string, s subset.ArraySubset, err error) *ArrayError {
	return &ArrayError{Op: op, Kind: InvalidArraySubset, Err: fmt.Errorf("invalid array subset %v: %w", s, err)}
}

func unexpectedChunkDecodedSize(op string, got, expected uint64) *ArrayError {
	return &ArrayError{Op: op, Kind: UnexpectedChunkDecodedSize, Err: &codec.UnexpectedSizeError{Got: got, Expected: expected}}
}

func codecError(op string, err error) *ArrayError {
	return &ArrayError{Op: op, Kind: CodecErrorKind, Err: err}
}

func storageError(op string, err error) *ArrayError {
	return &ArrayError{Op: op, Kind: StorageErrorKind, Err: err}
}
