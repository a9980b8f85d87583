package chronidx

import (
	"testing"

	"github.com/tempestlab/hl/record"
)

func TestBuilderLevelBitmaskAccumulates(t *testing.T) {
	b := NewBuilder()
	b.Add(record.LevelInfo, 100, true, 0)
	b.Add(record.LevelError, 200, true, 10)
	idx := b.Finish()
	want := record.LevelInfo.Bit() | record.LevelError.Bit()
	if idx.LevelBitmask != want {
		t.Fatalf("expected bitmask %b, got %b", want, idx.LevelBitmask)
	}
}

func TestBuilderTSMinMax(t *testing.T) {
	b := NewBuilder()
	b.Add(record.LevelInfo, 500, true, 0)
	b.Add(record.LevelInfo, 100, true, 10)
	b.Add(record.LevelInfo, 900, true, 20)
	idx := b.Finish()
	if idx.TSMin != 100 || idx.TSMax != 900 {
		t.Fatalf("unexpected min/max: %d/%d", idx.TSMin, idx.TSMax)
	}
}

func TestBuilderUnsortedFlag(t *testing.T) {
	b := NewBuilder()
	b.Add(record.LevelInfo, 100, true, 0)
	b.Add(record.LevelInfo, 50, true, 10) // out of order
	idx := b.Finish()
	if !idx.Unsorted {
		t.Fatal("expected unsorted flag set")
	}
	if idx.Bit(0) != 0 {
		t.Fatal("first record should never be marked out-of-order")
	}
	if idx.Bit(1) != 1 {
		t.Fatal("second (earlier-timestamp) record should be marked out-of-order")
	}
	if len(idx.Jumps) != 1 || idx.Jumps[0] != 10 {
		t.Fatalf("expected jumps=[10], got %v", idx.Jumps)
	}
}

func TestBuilderSortedStaysClean(t *testing.T) {
	b := NewBuilder()
	for i := int64(0); i < 10; i++ {
		b.Add(record.LevelInfo, record.Timestamp(i*100), true, i*20)
	}
	idx := b.Finish()
	if idx.Unsorted {
		t.Fatal("expected sorted input to leave Unsorted=false")
	}
	if len(idx.Jumps) != 0 {
		t.Fatalf("expected no jumps for sorted input, got %v", idx.Jumps)
	}
}

func TestBuilderSnapshotsEvery64(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 130; i++ {
		b.Add(record.LevelInfo, record.Timestamp(i), true, int64(i*8))
	}
	idx := b.Finish()
	if len(idx.Offsets.Bytes) != 3 {
		t.Fatalf("expected 3 snapshots for 130 records (0,64,128), got %d", len(idx.Offsets.Bytes))
	}
}

func TestIndexAdmitsLevelAndWindow(t *testing.T) {
	b := NewBuilder()
	b.Add(record.LevelInfo, 1000, true, 0)
	b.Add(record.LevelWarn, 2000, true, 10)
	idx := b.Finish()

	if !idx.AdmitsLevel(record.LevelWarn.Bit()) {
		t.Fatal("expected level admission to pass")
	}
	if idx.AdmitsLevel(record.LevelError.Bit()) {
		t.Fatal("expected level admission to fail for absent level")
	}
	if !idx.AdmitsWindow(500, true, 2500, true) {
		t.Fatal("expected window admission to pass")
	}
	if idx.AdmitsWindow(3000, true, 4000, true) {
		t.Fatal("expected window admission to fail when entirely after range")
	}
}

func TestNoTimestampsNeverAdmitsWindow(t *testing.T) {
	b := NewBuilder()
	b.Add(record.LevelInfo, 0, false, 0)
	idx := b.Finish()
	if idx.AdmitsWindow(0, true, 1000, true) {
		t.Fatal("segment with no timestamps should never admit a windowed query")
	}
}
