// Package chronidx implements §4.I's Segment Indexer: for one segment,
// it accumulates a level bitmask, timestamp min/max, an unsorted flag,
// and a packed chronology bitmap with periodic offset/jump snapshots.
// merge.FileSource walks the bitmap (Bit) to split a segment's records
// into its already-sorted "mainline" run plus the handful the bitmap
// flags as out-of-order, instead of re-sorting every record in the
// segment.
//
// Grounded on ChristianF88-cidrx's trie package: the same "one bit of
// state per input item, periodically checkpointed for fast lookup"
// discipline that trie.go applies to IP prefixes is applied here to
// per-record chronology.
package chronidx

import "github.com/tempestlab/hl/record"

// snapshotInterval is the "every 64 records" cadence §4.I specifies.
const snapshotInterval = 64

// Offsets holds the periodic checkpoints into Bitmap/Jumps that let a
// lookup skip forward in snapshotInterval-sized strides instead of
// scanning every bit from the start of the segment.
type Offsets struct {
	Bytes []int64 // segment byte offset at each snapshot point
	Jumps []int32 // cursor into Jumps at each snapshot point
}

// Index is one segment's built index (§4.I, persisted per §6.3 by
// indexcache).
type Index struct {
	LevelBitmask  uint64
	TSMin, TSMax  record.Timestamp
	HasTimestamps bool
	Unsorted      bool

	NumRecords int
	// Bitmap packs one bit per record in source order: 0 when the record
	// is the chronological successor of the previous record (ts
	// non-decreasing), 1 when it's out of order relative to the running
	// high-water mark.
	Bitmap []byte
	// Jumps holds the segment byte offset of every out-of-order (bit=1)
	// record, in the order encountered.
	Jumps   []int64
	Offsets Offsets
}

// Builder accumulates one segment's Index incrementally as records are
// observed in source order.
type Builder struct {
	idx        Index
	haveFirst  bool
	highWater  record.Timestamp
	curBitByte byte
	curBitPos  int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{idx: Index{TSMin: record.NoTimestamp, TSMax: record.NoTimestamp}}
}

// Add records one source-order record: its resolved level (LevelAbsent
// if none), its timestamp (hasTS=false if none), and its byte offset within
// the segment.
func (b *Builder) Add(lvl record.Level, ts record.Timestamp, hasTS bool, byteOffset int64) {
	n := b.idx.NumRecords
	if n%snapshotInterval == 0 {
		b.idx.Offsets.Bytes = append(b.idx.Offsets.Bytes, byteOffset)
		b.idx.Offsets.Jumps = append(b.idx.Offsets.Jumps, int32(len(b.idx.Jumps)))
	}

	b.idx.LevelBitmask |= lvl.Bit()

	outOfOrder := false
	if hasTS {
		if !b.idx.HasTimestamps {
			b.idx.HasTimestamps = true
			b.idx.TSMin = ts
			b.idx.TSMax = ts
		} else {
			if ts < b.idx.TSMin {
				b.idx.TSMin = ts
			}
			if ts > b.idx.TSMax {
				b.idx.TSMax = ts
			}
		}
		if b.haveFirst && ts < b.highWater {
			outOfOrder = true
			b.idx.Unsorted = true
		}
		if !b.haveFirst || ts > b.highWater {
			b.highWater = ts
		}
		b.haveFirst = true
	}

	if outOfOrder {
		b.setBit(n, 1)
		b.idx.Jumps = append(b.idx.Jumps, byteOffset)
	} else {
		b.setBit(n, 0)
	}
	b.idx.NumRecords++
}

func (b *Builder) setBit(n int, bit byte) {
	byteIdx := n / 8
	for len(b.idx.Bitmap) <= byteIdx {
		b.idx.Bitmap = append(b.idx.Bitmap, 0)
	}
	if bit == 1 {
		b.idx.Bitmap[byteIdx] |= 1 << uint(n%8)
	}
}

// Finish returns the completed Index.
func (b *Builder) Finish() Index { return b.idx }

// Bit returns the chronology bit for source-order record n.
func (idx Index) Bit(n int) byte {
	byteIdx := n / 8
	if byteIdx >= len(idx.Bitmap) {
		return 0
	}
	return (idx.Bitmap[byteIdx] >> uint(n%8)) & 1
}

// AdmitsLevel reports whether any level in mask is present in this
// segment's LevelBitmask (§4.K admission pruning step 1).
func (idx Index) AdmitsLevel(mask uint64) bool {
	return idx.LevelBitmask&mask != 0
}

// AdmitsWindow reports whether this segment's timestamp range could
// possibly intersect [since,until]. A segment with no timestamps never
// admits a window-bounded query.
func (idx Index) AdmitsWindow(since record.Timestamp, hasSince bool, until record.Timestamp, hasUntil bool) bool {
	if !idx.HasTimestamps {
		return false
	}
	if hasSince && idx.TSMax < since {
		return false
	}
	if hasUntil && idx.TSMin > until {
		return false
	}
	return true
}
