package follow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tempestlab/hl/frame"
	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/tstamp"
)

func baseConfig() Config {
	return Config{
		TailBytes:     4096,
		SyncInterval:  30 * time.Millisecond,
		Framer:        frame.New(frame.ModeLF, false),
		Format:        parse.FormatJSON,
		Names:         semantic.DefaultNameLists(),
		Levels:        record.DefaultLevelTable(),
		TimestampUnit: tstamp.UnitAuto,
	}
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFollowEmitsNewlyAppendedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	writeLines(t, path, `{"ts":"2024-01-01T00:00:00Z","msg":"one"}`)

	eng := New(baseConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var got []record.Record
	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx, []string{path}, func(r record.Record) error {
			got = append(got, r)
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	writeLines(t, path, `{"ts":"2024-01-01T00:00:01Z","msg":"two"}`)

	<-done
	if len(got) != 2 {
		t.Fatalf("expected 2 records emitted, got %d", len(got))
	}
}

func TestFollowTailPreloadSkipsPartialLeadingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"ts":"2024-01-01T00:00:00Z","msg":"old"}` + "\n")
	f.Close()

	cfg := baseConfig()
	cfg.TailBytes = 10 // smaller than the line, forcing a mid-line seek
	eng := New(cfg)
	st, err := eng.openTail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(path)
	if st.parseCursor != info.Size() {
		t.Fatalf("expected cursor to skip past the only (now partial) line to EOF, got %d of %d", st.parseCursor, info.Size())
	}
}

func TestFollowRotationReopensFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.log")
	writeLines(t, path, `{"ts":"2024-01-01T00:00:00Z","msg":"before-rotate"}`)

	eng := New(baseConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx, []string{path}, func(r record.Record) error {
			v, _ := r.Get("msg")
			got = append(got, v.String())
			return nil
		})
	}()

	time.Sleep(60 * time.Millisecond)
	os.Remove(path)
	writeLines(t, path, `{"ts":"2024-01-01T00:00:02Z","msg":"after-rotate"}`)

	<-done
	if len(got) == 0 || got[len(got)-1] != "after-rotate" {
		t.Fatalf("expected rotated file's record to be emitted, got %v", got)
	}
}
