package storage

import "fmt"

// ByteRange addresses a sub-range of a store value, either relative to the
// start of the value (FromStart) or anchored at a point measured back from
// the value's end (FromEnd).
type ByteRange struct {
	fromEnd bool
	offset  uint64 // start offset (FromStart) or distance-from-end anchor (FromEnd)
	length  uint64
	hasLen  bool
}

// ByteRangeFromStart returns a range starting at offset. If length is
// negative, the range extends to the end of the value.
func ByteRangeFromStart(offset uint64, length int64) ByteRange {
	if length < 0 {
		return ByteRange{offset: offset}
	}
	return ByteRange{offset: offset, length: uint64(length), hasLen: true}
}

// ByteRangeFromEnd returns a range anchored endOffset bytes before the end
// of the value (endOffset == 0 means anchored at the true end). If length
// is given, the range is the length bytes immediately preceding the
// anchor — endOffset=0, length=4 addresses the value's last 4 bytes. If
// length is negative, the range extends from the start of the value up
// to the anchor — i.e. "every byte except the last endOffset".
func ByteRangeFromEnd(endOffset uint64, length int64) ByteRange {
	if length < 0 {
		return ByteRange{fromEnd: true, offset: endOffset}
	}
	return ByteRange{fromEnd: true, offset: endOffset, length: uint64(length), hasLen: true}
}

// IsFromEnd reports whether the range is anchored at the end of the value.
func (r ByteRange) IsFromEnd() bool { return r.fromEnd }

// Offset returns the start offset (FromStart) or the end-anchor distance
// (FromEnd).
func (r ByteRange) Offset() uint64 { return r.offset }

// Length returns the explicit length and true, or (0, false) when the
// range has no explicit length (FromStart: extends to EOF; FromEnd:
// extends back to the start of the value).
func (r ByteRange) Length() (uint64, bool) { return r.length, r.hasLen }

// Resolve converts the range to an absolute [start, end) pair given the
// total size of the value. A FromEnd anchor beyond the value's size
// clamps to the start of the value rather than producing a negative
// offset.
func (r ByteRange) Resolve(size uint64) (start, end uint64, err error) {
	if r.fromEnd {
		var anchor uint64
		if r.offset > size {
			anchor = 0
		} else {
			anchor = size - r.offset
		}
		end = anchor
		if r.hasLen {
			if r.length > anchor {
				start = 0
			} else {
				start = anchor - r.length
			}
		} else {
			start = 0
		}
		return start, end, nil
	}
	start = r.offset
	if start > size {
		return 0, 0, fmt.Errorf("byte range start %d exceeds value size %d", start, size)
	}
	if r.hasLen {
		end = start + r.length
		if end > size {
			end = size
		}
	} else {
		end = size
	}
	return start, end, nil
}
