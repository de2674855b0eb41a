// Package chunkgrid maps chunk grid coordinates to chunk shapes and
// validates coordinates against an array's shape. Generalizes the
// teacher's GridShape (chunk.go) from a pure grid-shape helper into the
// full ChunkGrid contract spec.md §3/§4 requires.
package chunkgrid

import "fmt"

// ChunkGrid gives, for each chunk coordinate, the chunk's per-dimension
// extents, and reports the grid's own shape (number of chunks per axis).
type ChunkGrid interface {
	// GridShape returns the number of chunks along each axis covering
	// arrayShape.
	GridShape(arrayShape []uint64) []uint64
	// ChunkShape returns the shape of the chunk at coord, truncated at
	// the array boundary where applicable. An error indicates coord is
	// out of range for arrayShape.
	ChunkShape(coord []uint64, arrayShape []uint64) ([]uint64, error)
	// ChunkOrigin returns the chunk's start offset in array coordinates.
	ChunkOrigin(coord []uint64) []uint64
}

// Regular is the standard chunk grid: one fixed chunk size per axis, with
// the final chunk along each axis truncated to fit the array shape.
type Regular struct {
	ChunkSize []uint64
}

// NewRegular constructs a Regular chunk grid.
func NewRegular(chunkSize []uint64) Regular {
	return Regular{ChunkSize: append([]uint64(nil), chunkSize...)}
}

func (g Regular) GridShape(arrayShape []uint64) []uint64 {
	grid := make([]uint64, len(arrayShape))
	for i, dim := range arrayShape {
		grid[i] = ceilDiv(dim, g.ChunkSize[i])
	}
	return grid
}

func (g Regular) ChunkShape(coord []uint64, arrayShape []uint64) ([]uint64, error) {
	if len(coord) != len(arrayShape) || len(coord) != len(g.ChunkSize) {
		return nil, fmt.Errorf("chunkgrid: dimensionality mismatch (coord=%d, array=%d, chunk=%d)",
			len(coord), len(arrayShape), len(g.ChunkSize))
	}
	shape := make([]uint64, len(coord))
	for i := range coord {
		grid := ceilDiv(arrayShape[i], g.ChunkSize[i])
		if coord[i] >= grid {
			return nil, fmt.Errorf("chunkgrid: coordinate %d out of range at axis %d (grid size %d)", coord[i], i, grid)
		}
		start := coord[i] * g.ChunkSize[i]
		end := start + g.ChunkSize[i]
		if end > arrayShape[i] {
			end = arrayShape[i]
		}
		shape[i] = end - start
	}
	return shape, nil
}

func (g Regular) ChunkOrigin(coord []uint64) []uint64 {
	origin := make([]uint64, len(coord))
	for i := range coord {
		origin[i] = coord[i] * g.ChunkSize[i]
	}
	return origin
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
