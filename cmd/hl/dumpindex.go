package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/indexcache"
	"github.com/tempestlab/hl/merge"
)

// runDumpIndex implements --dump-index: build or load each input's
// segment index and print what a sorted-merge run would see, without
// merging anything (§6.1).
func runDumpIndex(s cli.Settings, stdout, stderr *os.File) error {
	inputs := s.Inputs
	if len(inputs) == 0 {
		return &configError{"--dump-index requires at least one input file"}
	}

	for _, path := range inputs {
		fi, err := merge.BuildOrLoadIndex(merge.FileSourceConfig{
			Path:           path,
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
		printFileIndex(stdout, fi)
	}
	return nil
}

func printFileIndex(w *os.File, fi indexcache.FileIndex) {
	fmt.Fprintf(w, "%s  size=%d  sha256=%x  modified=%s\n",
		fi.Path, fi.Size, fi.SHA256, timeOf(fi.Modified).Format(time.RFC3339))
	for i, b := range fi.Blocks {
		fmt.Fprintf(w, "  block %4d  offset=%-10d size=%-8d records=%-6d bad=%-4d flags=%s  ts=[%s, %s]\n",
			i, b.Offset, b.Size, b.LinesValid, b.LinesBad, flagString(b.Flags),
			timeOf(b.TSMin).Format(time.RFC3339Nano), timeOf(b.TSMax).Format(time.RFC3339Nano))
	}
}

func timeOf(ts indexcache.Timestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec)).UTC()
}

func flagString(flags uint64) string {
	var out string
	add := func(bit uint64, name string) {
		if flags&bit != 0 {
			if out != "" {
				out += "|"
			}
			out += name
		}
	}
	add(indexcache.FlagDebug, "debug")
	add(indexcache.FlagInfo, "info")
	add(indexcache.FlagWarning, "warn")
	add(indexcache.FlagError, "error")
	add(indexcache.FlagUnsorted, "unsorted")
	add(indexcache.FlagHasTimestamps, "ts")
	if out == "" {
		return "-"
	}
	return out
}
