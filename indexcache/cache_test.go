package indexcache

import (
	"testing"

	"github.com/tempestlab/hl/chronidx"
	"github.com/tempestlab/hl/record"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	b := chronidx.NewBuilder()
	b.Add(record.LevelWarn, 1000, true, 0)
	idx := b.Finish()

	block := FromIndex(idx, 0, 64)
	fi := FileIndex{
		Size:     1024,
		Path:     "/tmp/example.log",
		Modified: Timestamp{Sec: 1700000000},
		Blocks:   []SourceBlock{block},
	}

	if err := s.Save("/tmp/example.log", fi); err != nil {
		t.Fatal(err)
	}

	loaded, ok := s.Load("/tmp/example.log", 1024, Timestamp{Sec: 1700000000})
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(loaded.Blocks) != 1 || loaded.Blocks[0].Flags&FlagWarning == 0 {
		t.Fatalf("unexpected loaded blocks: %+v", loaded.Blocks)
	}
}

func TestLoadMissesOnSizeChange(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	fi := FileIndex{Size: 1024, Path: "/tmp/x.log", Modified: Timestamp{Sec: 1}}
	s.Save("/tmp/x.log", fi)

	_, ok := s.Load("/tmp/x.log", 2048, Timestamp{Sec: 1})
	if ok {
		t.Fatal("expected cache miss on size mismatch")
	}
}

func TestLoadMissesOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	fi := FileIndex{Size: 1024, Path: "/tmp/y.log", Modified: Timestamp{Sec: 1}}
	s.Save("/tmp/y.log", fi)

	_, ok := s.Load("/tmp/y.log", 1024, Timestamp{Sec: 2})
	if ok {
		t.Fatal("expected cache miss on mtime mismatch")
	}
}

func TestLoadForAppendMatchesPrefixHash(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	chunk := []byte("first 64KiB worth of content")
	fi := FileIndex{Size: 1024, Path: "/tmp/z.log", SHA256: sha256Prefix(chunk)}
	s.Save("/tmp/z.log", fi)

	_, ok := s.LoadForAppend("/tmp/z.log", chunk)
	if !ok {
		t.Fatal("expected append-tolerant hit on matching prefix")
	}

	_, ok = s.LoadForAppend("/tmp/z.log", []byte("totally different content"))
	if ok {
		t.Fatal("expected miss when prefix content differs")
	}
}

func TestFlagBinaryNeverSet(t *testing.T) {
	b := chronidx.NewBuilder()
	b.Add(record.LevelInfo, 1, true, 0)
	block := FromIndex(b.Finish(), 0, 8)
	if block.Flags&FlagBinary != 0 {
		t.Fatal("FlagBinary must never be set by FromIndex")
	}
}
