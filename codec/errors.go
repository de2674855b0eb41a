package codec

import "fmt"

// Error wraps a failure inside a single codec stage (spec.md §4.7
// CodecError): checksum mismatch, malformed compressed stream, or
// unknown codec id.
type Error struct {
	Codec string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %s: %v", e.Codec, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(codecName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Codec: codecName, Op: op, Err: err}
}

// UnexpectedSizeError signals the pipeline decoded-size invariant was
// violated: a full chunk decode must produce exactly
// ChunkRepresentation.EncodedSize() bytes.
type UnexpectedSizeError struct {
	Got, Expected uint64
}

func (e *UnexpectedSizeError) Error() string {
	return fmt.Sprintf("codec: unexpected decoded size: got %d, expected %d", e.Got, e.Expected)
}
