//go:build zarrdebug

package subset

import (
	"fmt"
	"sync"
)

const debugAssertionsEnabled = true

// grantTracker records every byte range handed out by AliasedBuffer.Grant
// and rejects overlapping claims. It exists only in zarrdebug builds: the
// linear scan it does on every claim is not something production code
// should pay for, but it catches a planner bug that would otherwise
// silently corrupt the output buffer.
type grantTracker struct {
	mu     sync.Mutex
	size   uint64
	claims []grantRange
}

type grantRange struct {
	offset, length uint64
}

func newGrantTracker(size uint64) *grantTracker {
	return &grantTracker{size: size}
}

func (t *grantTracker) claim(offset, length uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.claims {
		if rangesOverlap(c.offset, c.length, offset, length) {
			return fmt.Errorf("subset: overlapping aliased-buffer grant [%d,%d) conflicts with existing grant [%d,%d)",
				offset, offset+length, c.offset, c.offset+c.length)
		}
	}
	t.claims = append(t.claims, grantRange{offset: offset, length: length})
	return nil
}

func rangesOverlap(aOff, aLen, bOff, bLen uint64) bool {
	aEnd := aOff + aLen
	bEnd := bOff + bLen
	return aOff < bEnd && bOff < aEnd
}
