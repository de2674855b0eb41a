package splitter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/internal/splitter"
)

func TestSplitSerialCodecForcesFullFanOut(t *testing.T) {
	// transpose-like codec: max concurrency 1, so all of the budget must
	// go to outer fan-out.
	outer, inner := splitter.Split(16, 8, codec.FixedConcurrency(1))
	assert.Equal(t, 8, outer)
	assert.Equal(t, 1, inner)
}

func TestSplitScalingCodecConcedesOuterSlots(t *testing.T) {
	outer, inner := splitter.Split(16, 8, codec.RecommendedConcurrency(1, 16))
	assert.Equal(t, 8, outer)
	assert.Equal(t, 2, inner)
}

func TestSplitFewerChunksThanBudget(t *testing.T) {
	outer, inner := splitter.Split(16, 2, codec.RecommendedConcurrency(1, 16))
	assert.Equal(t, 2, outer)
	assert.Equal(t, 8, inner)
}

func TestSplitMinimumConcurrencyRespected(t *testing.T) {
	outer, inner := splitter.Split(1, 4, codec.RecommendedConcurrency(2, 4))
	assert.Equal(t, 1, outer)
	assert.Equal(t, 2, inner)
}

func TestSplitSingleChunk(t *testing.T) {
	outer, inner := splitter.Split(16, 1, codec.RecommendedConcurrency(1, 8))
	assert.Equal(t, 1, outer)
	assert.Equal(t, 8, inner)
}
