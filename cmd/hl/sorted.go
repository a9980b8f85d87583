package main

import (
	"os"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/merge"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/render"
)

// runSorted drives §4.K's sorted merge: every input contributes a
// merge.FileSource (admission-pruned, timestamp-ordered), and merge.Run
// interleaves them into one non-decreasing-timestamp stream.
func runSorted(s cli.Settings, stdout, stderr *os.File) error {
	inputs := s.Inputs
	if len(inputs) == 0 {
		return &configError{"sort mode requires at least one input file (stdin cannot be chronologically indexed)"}
	}

	sources := make([]merge.Source, 0, len(inputs))
	defer func() {
		for _, src := range sources {
			if fs, ok := src.(*merge.FileSource); ok {
				fs.Close()
			}
		}
	}()

	for i, path := range inputs {
		fs, err := merge.OpenFileSource(merge.FileSourceConfig{
			Path:           path,
			FileIdx:        i,
			CacheDir:       s.CacheDir,
			BufferSize:     s.BufferSize,
			MaxMessageSize: s.MaxMessageSize,
			Framer:         readerOptions(s, path).Framer,
			Format:         s.InputFormat,
			Names:          s.NameLists,
			Levels:         s.LevelTable,
			Unit:           s.UnixUnit,
			Query:          s.Query,
		})
		if err != nil {
			return err
		}
		sources = append(sources, fs)
	}

	ev := newEvaluator(s)
	formatter := formatterFor(stdout, s)
	out, closePager := render.PagerWriter(stdout, s.Pager)
	defer closePager()

	return merge.Run(sources, func(rec record.Record) error {
		sem := ev.extractor.Extract(rec)
		return writeRecord(out, rec, sem, formatter, s.Raw)
	})
}

// configError is a Configuration-kind error (§7.1); main maps it to exit 1.
type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }
