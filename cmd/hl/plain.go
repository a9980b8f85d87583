package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/pipeline"
	"github.com/tempestlab/hl/pools"
	"github.com/tempestlab/hl/reader"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/render"
)

// recordBatchCap is RecordSlicePool's starting capacity; a batch grown
// past four times it is left to GC by Put instead of returning to the pool.
const recordBatchCap = 64

// runPlain drives §4.H's non-sort pipeline over every input in turn:
// output order equals input segment order within each file, and files
// are processed one after another in the order given (§8 "Order
// preservation (non-sort)" only promises per-file ordering; cross-file
// chronological interleaving is sort mode's job).
func runPlain(ctx context.Context, s cli.Settings, stdout, stderr *os.File) error {
	inputs := s.Inputs
	if len(inputs) == 0 {
		inputs = []string{""}
	}

	formatter := formatterFor(stdout, s)
	out, closePager := render.PagerWriter(stdout, s.Pager)
	defer closePager()

	for _, path := range inputs {
		if err := runPlainFile(ctx, s, path, out, formatter); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func runPlainFile(ctx context.Context, s cli.Settings, path string, w io.Writer, formatter render.Formatter) error {
	var src io.Reader
	var closer io.Closer
	source := path
	if path == "" {
		src, source = os.Stdin, "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		src, closer = f, f
	}
	rd, err := reader.Open(src, readerOptions(s, source))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	defer rd.Close()
	if closer != nil {
		defer closer.Close()
	}

	ev := newEvaluator(s)
	active := filteringActive(s)
	batches := pools.NewRecordSlicePool[record.Record](recordBatchCap)

	process := func(seg reader.Segment) ([]record.Record, error) {
		out := batches.Get()
		spans, _ := seg.Framer.Split(seg.Data)
		for _, span := range spans {
			body, prefix := splitBody(seg.Framer, span)
			rec := ev.parse(body, prefix)
			if rec.IsRaw() {
				if !active {
					out = append(out, rec)
				}
				continue
			}
			if _, ok := ev.matches(rec); !ok {
				continue
			}
			out = append(out, rec)
		}
		return out, nil
	}

	emit := func(slot pipeline.Slot) error {
		for _, rec := range slot.Records {
			sem := ev.extractor.Extract(rec)
			if err := writeRecord(w, rec, sem, formatter, s.Raw); err != nil {
				return err
			}
		}
		batches.Put(slot.Records, recordBatchCap*4)
		return nil
	}

	segments := make(chan reader.Segment, s.Concurrency*2)
	ex := pipeline.New(s.Concurrency, process)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(segments)
		for {
			seg, err := rd.NextSegment()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			select {
			case segments <- seg:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		return ex.Run(gctx, segments, emit)
	})
	return g.Wait()
}
