// Package merge implements §4.K's Sorted Merge: per-segment admission
// pruning followed by a single-threaded k-way min-heap merge across
// files, keyed by timestamp with a stable (file order, line order)
// tie-break.
//
// Grounded on cosnicolaou-pbzip2's parallel.go blockHeap/assemble pair
// (the same container/heap-based min-heap-by-sequence-number idea
// pipeline.Executor uses) generalized here from "pop strictly the next
// expected sequence number" to "pop strictly the smallest timestamp,
// breaking ties by a secondary (file, line) order" — and from
// foxglove-mcap's OrderedLexer, whose single forward cursor per input
// stream is the shape Source below borrows for each file's read
// position.
package merge

import (
	"container/heap"

	"github.com/tempestlab/hl/chronidx"
	"github.com/tempestlab/hl/record"
)

// Source is one file's chronologically-ordered record stream. Peek must
// be idempotent (repeated calls without an intervening Pop return the
// same record); Pop consumes and returns it.
type Source interface {
	// Peek reports the next record's timestamp and line index without
	// consuming it. ok is false once the file is exhausted.
	Peek() (ts record.Timestamp, lineIdx int, ok bool)
	// Pop consumes and returns the record Peek last reported.
	Pop() (record.Record, error)
	// FileIndex is this source's position among the files given to Run,
	// used for the stable tie-break (§4.K step 5).
	FileIndex() int
}

// Admits reports whether a segment could contain records satisfying
// levelMask and the [since,until] window, without reading its bytes
// (§4.K step 1). levelMask is OR'd level bits (record.Level.Bit());
// hasSince/hasUntil false means that bound is inactive.
func Admits(idx chronidx.Index, levelMask uint64, since record.Timestamp, hasSince bool, until record.Timestamp, hasUntil bool) bool {
	if levelMask != 0 && !idx.AdmitsLevel(levelMask) {
		return false
	}
	if (hasSince || hasUntil) && !idx.AdmitsWindow(since, hasSince, until, hasUntil) {
		return false
	}
	return true
}

// EmitFunc receives records in final merged order.
type EmitFunc func(record.Record) error

// Run merges every admitted source's records into strictly
// non-decreasing timestamp order (ties broken by file index then line
// index), calling emit for each. It returns the first error from a
// Source.Pop call or from emit.
func Run(sources []Source, emit EmitFunc) error {
	h := &mergeHeap{}
	heap.Init(h)
	for _, s := range sources {
		pushNext(h, s)
	}

	for h.Len() > 0 {
		it := heap.Pop(h).(item)
		rec, err := it.src.Pop()
		if err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
		pushNext(h, it.src)
	}
	return nil
}

func pushNext(h *mergeHeap, s Source) {
	ts, lineIdx, ok := s.Peek()
	if !ok {
		return
	}
	heap.Push(h, item{ts: ts, fileIdx: s.FileIndex(), lineIdx: lineIdx, src: s})
}

type item struct {
	ts      record.Timestamp
	fileIdx int
	lineIdx int
	src     Source
}

type mergeHeap []item

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	if h[i].fileIdx != h[j].fileIdx {
		return h[i].fileIdx < h[j].fileIdx
	}
	return h[i].lineIdx < h[j].lineIdx
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(item)) }

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
