package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/tempestlab/hl/reader"
	"github.com/tempestlab/hl/record"
)

func makeSegment(seq int64, n int) reader.Segment {
	recs := make([]byte, n)
	return reader.Segment{Data: recs, Seq: seq}
}

func TestExecutorEmitsInSequenceOrder(t *testing.T) {
	segs := make(chan reader.Segment, 10)
	for i := int64(0); i < 10; i++ {
		segs <- makeSegment(i, 1)
	}
	close(segs)

	ex := New(4, func(seg reader.Segment) ([]record.Record, error) {
		// Deliberately do nothing sequence-dependent so ordering could
		// only come from the assembler, not processing order.
		return []record.Record{{Source: seg.Data}}, nil
	})

	var order []int64
	err := ex.Run(context.Background(), segs, func(s Slot) error {
		order = append(order, s.Seq)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, seq := range order {
		if seq != int64(i) {
			t.Fatalf("expected strictly increasing sequence, got %v", order)
		}
	}
}

func TestExecutorPropagatesWorkerError(t *testing.T) {
	segs := make(chan reader.Segment, 3)
	for i := int64(0); i < 3; i++ {
		segs <- makeSegment(i, 1)
	}
	close(segs)

	wantErr := errors.New("boom")
	ex := New(2, func(seg reader.Segment) ([]record.Record, error) {
		if seg.Seq == 1 {
			return nil, wantErr
		}
		return nil, nil
	})

	err := ex.Run(context.Background(), segs, func(s Slot) error { return nil })
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestExecutorRespectsCancellation(t *testing.T) {
	segs := make(chan reader.Segment)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := New(2, func(seg reader.Segment) ([]record.Record, error) { return nil, nil })
	err := ex.Run(ctx, segs, func(s Slot) error { return nil })
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
