package main

import (
	"context"
	"os"
	"time"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/follow"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/render"
)

// runFollow drives §4.L's follow engine over every input path. Inputs
// must name real files (a live tail needs something to poll); stdin
// can't be followed.
func runFollow(ctx context.Context, s cli.Settings, stdout, stderr *os.File) error {
	if len(s.Inputs) == 0 {
		return &configError{"follow mode requires at least one input file (stdin cannot be tailed)"}
	}

	q := s.Query
	cfg := follow.Config{
		TailBytes:     s.TailBytes,
		SyncInterval:  time.Duration(s.SyncIntervalMs) * time.Millisecond,
		Framer:        readerOptions(s, "").Framer,
		Format:        s.InputFormat,
		Names:         s.NameLists,
		Levels:        s.LevelTable,
		TimestampUnit: s.UnixUnit,
		Query:         &q,
	}

	ev := newEvaluator(s)
	formatter := formatterFor(stdout, s)
	out, closePager := render.PagerWriter(stdout, s.Pager)
	defer closePager()

	engine := follow.New(cfg)
	return engine.Run(ctx, s.Inputs, func(rec record.Record) error {
		sem := ev.extractor.Extract(rec)
		return writeRecord(out, rec, sem, formatter, s.Raw)
	})
}
