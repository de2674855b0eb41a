// Package planner implements the region→chunk→subset planner (spec.md
// §4.2): translating an array-space request into per-chunk work items
// with overlap geometry, plus the fast-path classification the facade
// must honour before falling back to full concurrent dispatch.
package planner

import (
	"fmt"

	"github.com/tuskan/zarr-core/chunkgrid"
	"github.com/tuskan/zarr-core/subset"
)

// WorkItem is one chunk's contribution to a planned request.
type WorkItem struct {
	// ChunkCoord is the chunk's grid coordinate.
	ChunkCoord []uint64
	// ChunkShape is the chunk's own full (possibly boundary-truncated)
	// shape, independent of how much of it this item actually covers.
	ChunkShape []uint64
	// ChunkSubset is the overlap expressed relative to the chunk's own
	// origin.
	ChunkSubset subset.ArraySubset
	// ViewSubset is the same overlap expressed relative to the
	// requested region's start — the destination window in the output
	// buffer.
	ViewSubset subset.ArraySubset
}

// Plan computes the work items covering region r of an array with the
// given grid and arrayShape, in row-major chunk-coordinate order. A region
// that is not within arrayShape is an error; a region with zero elements
// gives an empty result.
func Plan(r subset.ArraySubset, grid chunkgrid.ChunkGrid, arrayShape []uint64) ([]WorkItem, error) {
	if !r.InBounds(arrayShape) {
		return nil, fmt.Errorf("planner: region %v is out of bounds for array shape %v", r, arrayShape)
	}
	if r.NumElements() == 0 {
		return nil, nil
	}

	d := r.Dimensionality()
	end := r.End()
	chunkSize := regularChunkSize(grid)

	minChunk := make([]uint64, d)
	maxChunk := make([]uint64, d) // inclusive
	for i := 0; i < d; i++ {
		minChunk[i] = r.Start()[i] / chunkSize[i]
		maxChunk[i] = (end[i] - 1) / chunkSize[i]
	}

	var items []WorkItem
	coord := append([]uint64(nil), minChunk...)
	for {
		item, ok, err := planOneChunk(r, coord, grid, arrayShape)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}

		i := d - 1
		for ; i >= 0; i-- {
			coord[i]++
			if coord[i] <= maxChunk[i] {
				break
			}
			coord[i] = minChunk[i]
		}
		if i < 0 {
			break
		}
	}
	return items, nil
}

func planOneChunk(r subset.ArraySubset, coord []uint64, grid chunkgrid.ChunkGrid, arrayShape []uint64) (WorkItem, bool, error) {
	chunkShape, err := grid.ChunkShape(coord, arrayShape)
	if err != nil {
		return WorkItem{}, false, err
	}
	origin := grid.ChunkOrigin(coord)
	chunkArraySubset, err := subset.New(origin, chunkShape)
	if err != nil {
		return WorkItem{}, false, err
	}

	overlap, ok := r.Overlap(chunkArraySubset)
	if !ok {
		return WorkItem{}, false, nil
	}

	chunkLocal, err := overlap.RelativeTo(origin)
	if err != nil {
		return WorkItem{}, false, err
	}
	viewLocal, err := overlap.RelativeTo(r.Start())
	if err != nil {
		return WorkItem{}, false, err
	}

	return WorkItem{
		ChunkCoord:  append([]uint64(nil), coord...),
		ChunkShape:  chunkShape,
		ChunkSubset: chunkLocal,
		ViewSubset:  viewLocal,
	}, true, nil
}

// regularChunkSize extracts the grid's per-axis chunk size. Only
// chunkgrid.Regular is supported today; the chunkgrid.ChunkGrid interface
// otherwise leaves room for a future variable grid without the planner
// hard-depending on the concrete type for anything but this.
func regularChunkSize(grid chunkgrid.ChunkGrid) []uint64 {
	if rg, ok := grid.(chunkgrid.Regular); ok {
		return rg.ChunkSize
	}
	panic("planner: unsupported chunk grid implementation")
}

// Classify reports which fast path (spec.md §4.2) a planned work-item set
// falls into, given the requested region r.
type FastPath int

const (
	// FastPathFill means zero intersecting chunks: fill-value memset the
	// whole output.
	FastPathFill FastPath = iota
	// FastPathFullChunk means exactly one intersecting chunk whose
	// subset covers that whole chunk: skip partial decoding, do a full
	// chunk decode.
	FastPathFullChunk
	// FastPathPartialChunk means exactly one intersecting chunk, partial
	// subset: use the partial-decoder path directly.
	FastPathPartialChunk
	// FastPathConcurrent means two or more chunks: concurrent dispatch.
	FastPathConcurrent
)

// Classify determines the fast path for a planned item set against
// requested region r.
func Classify(items []WorkItem, r subset.ArraySubset) FastPath {
	switch len(items) {
	case 0:
		return FastPathFill
	case 1:
		if items[0].ChunkSubset.Equal(subset.NewFull(items[0].ChunkShape)) {
			return FastPathFullChunk
		}
		return FastPathPartialChunk
	default:
		return FastPathConcurrent
	}
}
