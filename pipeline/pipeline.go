// Package pipeline implements §4.H's Pipeline Executor: a fixed worker
// pool that parses segments concurrently, then reassembles results in
// strict sequence order before handing them to an emitter.
//
// Grounded on ChristianF88-cidrx's analysis/parallel_static.go worker
// pool (fixed-size goroutine pool draining a work channel, guarded
// aggregation of results) for the worker side, and on
// cosnicolaou-pbzip2's parallel.go blockHeap/assemble pair for the
// ordered-reassembly side: a container/heap min-heap keyed by sequence
// number, draining every slot whose number equals the next expected one
// before waiting for more. Worker lifecycle and first-error propagation
// use golang.org/x/sync/errgroup in place of the teacher's hand-rolled
// sync.WaitGroup, since errgroup already gives first-error-wins
// cancellation semantics the teacher's code re-derives by hand.
package pipeline

import (
	"container/heap"
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tempestlab/hl/reader"
	"github.com/tempestlab/hl/record"
)

// Slot is one segment's processing result, tagged with its sequence
// number for ordered reassembly.
type Slot struct {
	Seq     int64
	Segment reader.Segment
	Records []record.Record
	Err     error
}

// ProcessFunc parses one segment's records. Returning an error fails the
// whole run (§4.H "Failure").
type ProcessFunc func(seg reader.Segment) ([]record.Record, error)

// EmitFunc consumes slots strictly in sequence order. Returning an error
// stops the run with that error.
type EmitFunc func(Slot) error

// Executor runs the fixed worker pool and ordered emitter described by
// §4.H.
type Executor struct {
	Workers int
	Process ProcessFunc
}

// New returns an Executor with the given worker count (callers should
// pass runtime.GOMAXPROCS(0) for "default = available parallelism").
func New(workers int, process ProcessFunc) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{Workers: workers, Process: process}
}

// Run reads segments from segments until it's closed or ctx is
// cancelled, processes them across Workers goroutines, and calls emit
// for every slot in strict sequence order. It returns the first worker
// or emit error encountered, or ctx.Err() on cancellation.
//
// segments_in is the caller-supplied segments channel; slots_out is
// internal (the unordered channel workers publish to, drained by the
// ordering assembler); free_buffers is not modeled as a literal channel
// here — callers that want buffer reuse pass a pools.BufferPool into
// Process and return buffers there once Records no longer reference
// them, since the reuse decision is a property of what Process does with
// a segment, not of the executor itself.
func (ex *Executor) Run(ctx context.Context, segments <-chan reader.Segment, emit EmitFunc) error {
	slotsOut := make(chan Slot, ex.Workers*2)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < ex.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case seg, ok := <-segments:
					if !ok {
						return nil
					}
					recs, err := ex.Process(seg)
					slot := Slot{Seq: seg.Seq, Segment: seg, Records: recs, Err: err}
					select {
					case slotsOut <- slot:
					case <-gctx.Done():
						return gctx.Err()
					}
					if err != nil {
						return err
					}
				}
			}
		})
	}

	assembleDone := make(chan error, 1)
	go func() {
		assembleDone <- assemble(gctx, slotsOut, emit)
	}()

	workerErr := g.Wait()
	close(slotsOut)
	emitErr := <-assembleDone

	if workerErr != nil {
		return workerErr
	}
	return emitErr
}

// assemble drains slotsOut into a min-heap ordered by Seq, emitting every
// slot whose Seq equals the next expected sequence number as soon as
// it's available, and blocking (per §4.H "the emitter blocks until
// slots_out[next_seq] is ready") otherwise.
func assemble(ctx context.Context, slotsOut <-chan Slot, emit EmitFunc) error {
	h := &slotHeap{}
	heap.Init(h)
	var expected int64

	drain := func() error {
		for h.Len() > 0 && (*h)[0].Seq == expected {
			slot := heap.Pop(h).(Slot)
			expected++
			if err := emit(slot); err != nil {
				return err
			}
			if slot.Err != nil {
				return slot.Err
			}
		}
		return nil
	}

	for {
		select {
		case slot, ok := <-slotsOut:
			if !ok {
				return drain()
			}
			heap.Push(h, slot)
			if err := drain(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type slotHeap []Slot

func (h slotHeap) Len() int            { return len(h) }
func (h slotHeap) Less(i, j int) bool  { return h[i].Seq < h[j].Seq }
func (h slotHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x interface{}) { *h = append(*h, x.(Slot)) }
func (h *slotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
