// Package keyencoding provides concrete chunk_key_encoding implementations
// satisfying storage.ChunkKeyEncoding.
package keyencoding

import (
	"strconv"
	"strings"
)

// Default is the Zarr V3 default chunk key encoding: coordinates joined
// by "/" and prefixed with a literal "c" segment. A 0-dimensional
// (scalar) array encodes as just "c".
type Default struct {
	Separator string
}

// NewDefault returns the V3 default encoding with "/" as separator.
func NewDefault() Default { return Default{Separator: "/"} }

func (e Default) Encode(coords []uint64) string {
	if e.Separator == "" {
		return (Default{Separator: "/"}).Encode(coords)
	}
	var sb strings.Builder
	sb.WriteByte('c')
	for _, c := range coords {
		sb.WriteString(e.Separator)
		sb.WriteString(strconv.FormatUint(c, 10))
	}
	return sb.String()
}

// V2 reproduces the teacher's Zarr V2 chunk key style: coordinates joined
// by a separator with no "c" prefix, and "0" for the 0-dimensional case
// (the direct generalization of the teacher's ChunkKey in chunk.go, kept
// as a second supported, tested encoding alongside the V3 default).
type V2 struct {
	Separator string
}

// NewV2 returns the V2-style encoding with "." as separator (the
// teacher's convention).
func NewV2() V2 { return V2{Separator: "."} }

func (e V2) Encode(coords []uint64) string {
	if len(coords) == 0 {
		return "0"
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, e.Separator)
}
